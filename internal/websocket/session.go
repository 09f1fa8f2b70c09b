package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain"
	"github.com/satriahrh/roleplay/domain/entities"
	"github.com/satriahrh/roleplay/internal/metrics"
	"github.com/satriahrh/roleplay/usecase"
)

// SessionState is the lifecycle phase of a session
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateActive
	StateDraining
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const sessionErrorMessage = "The conversation ended unexpectedly. Please reconnect."

// Session is one client connection running one conversation.
type Session struct {
	id           string
	connectionID string

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of encoded outbound envelopes.
	send chan []byte

	// Closed by the write pump when it stops.
	writerDone chan struct{}

	// Audio queue between ingestion and recognition. Closing it is the end-of-stream sentinel.
	audio      chan []byte
	closeAudio sync.Once

	// Closed to stop ingestion when consumption ends first.
	stopIngest     chan struct{}
	stopIngestOnce sync.Once

	state        atomic.Int32
	history      *entities.ConversationHistory
	conversation *usecase.ConversationService
	drainTimeout time.Duration
	startTime    time.Time

	logger *zap.Logger
}

func newSession(
	id, connectionID string,
	conn *websocket.Conn,
	history *entities.ConversationHistory,
	conversation *usecase.ConversationService,
	config HubConfig,
	logger *zap.Logger,
) *Session {
	return &Session{
		id:           id,
		connectionID: connectionID,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		writerDone:   make(chan struct{}),
		audio:        make(chan []byte, config.AudioQueueSize),
		stopIngest:   make(chan struct{}),
		history:      history,
		conversation: conversation,
		drainTimeout: config.DrainTimeout,
		startTime:    time.Now(),
		logger:       logger,
	}
}

// State returns the current lifecycle phase
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(next SessionState) {
	prev := SessionState(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.Info("Session state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", next))
	}
}

// run drives the session from Active to Closed. It returns once the connection is closed.
func (s *Session) run(ctx context.Context) {
	s.setState(StateActive)

	consumeCtx, cancelConsume := context.WithCancel(ctx)
	defer cancelConsume()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readPump()
	}()
	go s.writePump()

	consumeDone := make(chan error, 1)
	go func() {
		consumeDone <- s.conversation.Converse(consumeCtx, s.audio, s.emit)
	}()

	var err error
	select {
	case err = <-consumeDone:
		s.setState(StateDraining)
		s.cancelIngestion()
		<-readDone

	case <-readDone:
		// Client went away: the sentinel is queued, let recognition flush what it has.
		s.setState(StateDraining)
		timer := time.NewTimer(s.drainTimeout)
		select {
		case err = <-consumeDone:
		case <-timer.C:
			s.logger.Warn("Drain timeout reached, cancelling conversation",
				zap.Duration("drainTimeout", s.drainTimeout))
			cancelConsume()
			err = <-consumeDone
		}
		timer.Stop()

	case <-ctx.Done():
		s.setState(StateDraining)
		cancelConsume()
		err = <-consumeDone
		s.cancelIngestion()
		<-readDone
	}

	outcome := "completed"
	if err != nil && !errors.Is(err, context.Canceled) {
		outcome = "error"
		s.logger.Error("Conversation failed", zap.Error(err))
		s.emit(domain.NewErrorMessage(sessionErrorMessage))
	}
	metrics.SessionsTotal.WithLabelValues(outcome).Inc()

	close(s.send)
	<-s.writerDone
	s.conn.Close()
	s.setState(StateClosed)

	s.exportLog()
}

// cancelIngestion unblocks the read pump whether it is reading or queueing audio.
func (s *Session) cancelIngestion() {
	s.stopIngestOnce.Do(func() {
		close(s.stopIngest)
	})
	s.conn.SetReadDeadline(time.Now())
}

func (s *Session) endAudio() {
	s.closeAudio.Do(func() {
		close(s.audio)
		s.logger.Debug("Audio stream ended")
	})
}

// readPump pumps binary audio frames from the websocket connection into the audio queue.
func (s *Session) readPump() {
	defer s.endAudio()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	// The close reply is sent by the write pump once the session has drained.
	s.conn.SetCloseHandler(func(code int, text string) error {
		s.logger.Debug("Client sent close frame", zap.Int("code", code))
		return nil
	})

	chunks := 0
	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket read error", zap.Error(err))
			}
			s.logger.Info("Client stopped sending audio", zap.Int("chunks", chunks))
			return
		}

		if messageType != websocket.BinaryMessage {
			s.logger.Warn("Ignoring non-binary frame", zap.Int("type", messageType))
			continue
		}

		select {
		case s.audio <- message:
			chunks++
			metrics.AudioChunksReceived.Inc()
		case <-s.stopIngest:
			return
		}
	}
}

// writePump pumps encoded envelopes to the websocket connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(s.writerDone)
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// emit queues an envelope for the client. Messages for a dead writer are dropped.
func (s *Session) emit(msg domain.OutboundMessage) {
	payload, err := msg.Encode()
	if err != nil {
		s.logger.Error("Failed to encode outbound message", zap.Error(err))
		return
	}

	select {
	case s.send <- payload:
	case <-s.writerDone:
		s.logger.Debug("Dropping message for closed connection", zap.String("type", string(msg.Type)))
	}
}

func (s *Session) exportLog() {
	log := s.history.Export(s.id, s.startTime, time.Now())
	if err := log.Validate(); err != nil {
		s.logger.Warn("Session log is inconsistent", zap.Error(err))
	}

	s.logger.Info("Session closed",
		zap.Time("startTime", log.StartTime),
		zap.Time("endTime", log.EndTime),
		zap.Duration("duration", log.Duration()),
		zap.Int("turns", len(log.ConversationHistory)),
		zap.Any("conversationHistory", log.ConversationHistory))
}

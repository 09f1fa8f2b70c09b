package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain/entities"
	"github.com/satriahrh/roleplay/domain/repositories"
	"github.com/satriahrh/roleplay/internal/metrics"
	"github.com/satriahrh/roleplay/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Outbound envelopes buffered per session.
	sendBufferSize = 256
)

var (
	// ErrShuttingDown is returned for connections attempted after Shutdown
	ErrShuttingDown = errors.New("server is shutting down")
	// ErrMissingSessionID is returned when the path carries no session ID
	ErrMissingSessionID = errors.New("session_id is required")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HubConfig holds the per-session settings shared by every connection
type HubConfig struct {
	AudioConfig    repositories.AudioConfig
	Generator      usecase.GeneratorConfig
	AudioQueueSize int
	DrainTimeout   time.Duration
}

// Hub accepts session connections and tracks the ones still open.
type Hub struct {
	// Open sessions keyed by connection ID.
	sessions map[string]*Session
	mu       sync.RWMutex
	wg       sync.WaitGroup
	closed   bool

	// Cancelled on shutdown; every session context derives from it.
	ctx    context.Context
	cancel context.CancelFunc

	sttRepo repositories.SpeechToText
	llm     repositories.TextGenerator
	speech  *usecase.SpeechService
	config  HubConfig

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	sttRepo repositories.SpeechToText,
	llm repositories.TextGenerator,
	ttsRepo repositories.TextToSpeech,
	config HubConfig,
	logger *zap.Logger,
) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
		sttRepo:  sttRepo,
		llm:      llm,
		speech:   usecase.NewSpeechService(ttsRepo, logger.Named("speech")),
		config:   config,
		logger:   logger,
	}
}

// HandleWebSocket upgrades the request and runs one conversation session on it.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return ErrMissingSessionID
	}

	if !h.acquire() {
		return ErrShuttingDown
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.wg.Done()
		h.logger.Error("WebSocket upgrade failed", zap.String("sessionID", sessionID), zap.Error(err))
		return err
	}

	session := h.newSession(sessionID, conn)
	h.register(session)

	// The handler returns right away; the session owns the connection from here.
	go func() {
		defer h.wg.Done()
		defer h.unregister(session)
		session.run(h.ctx)
	}()

	return nil
}

// acquire reserves a session slot unless the hub is shutting down
func (h *Hub) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

func (h *Hub) newSession(sessionID string, conn *websocket.Conn) *Session {
	connectionID := uuid.New().String()
	logger := h.logger.With(
		zap.String("sessionID", sessionID),
		zap.String("connectionID", connectionID))

	history := entities.NewConversationHistory()
	generator := usecase.NewResponseGenerator(h.llm, h.config.Generator, logger.Named("generator"))
	conversation := usecase.NewConversationService(
		h.sttRepo,
		h.config.AudioConfig,
		generator,
		h.speech,
		history,
		logger.Named("conversation"),
	)

	return newSession(sessionID, connectionID, conn, history, conversation, h.config, logger)
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.connectionID] = s
	h.mu.Unlock()
	metrics.ActiveSessions.Inc()
	h.logger.Info("Session registered",
		zap.String("sessionID", s.id),
		zap.String("connectionID", s.connectionID))
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.connectionID)
	h.mu.Unlock()
	metrics.ActiveSessions.Dec()
	h.logger.Info("Session unregistered",
		zap.String("sessionID", s.id),
		zap.String("connectionID", s.connectionID))
}

// ActiveSessions returns the number of open sessions
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown cancels every open session and waits for them to close
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("All sessions closed")
		return nil
	case <-ctx.Done():
		h.logger.Warn("Timed out waiting for sessions to close", zap.Int("open", h.ActiveSessions()))
		return ctx.Err()
	}
}

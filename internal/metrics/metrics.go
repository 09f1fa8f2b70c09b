package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback reasons reported by GenerationFallbacks
const (
	ReasonBackendError    = "backend_error"
	ReasonCircuitOpen     = "circuit_open"
	ReasonNoJSON          = "no_json"
	ReasonInvalidResponse = "invalid_response"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roleplay_active_sessions",
		Help: "Number of open conversation sessions",
	})

	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roleplay_sessions_total",
		Help: "Sessions closed, by outcome",
	}, []string{"outcome"})

	TranscriptEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roleplay_transcript_events_total",
		Help: "Transcript events received from speech recognition",
	}, []string{"final"})

	AudioChunksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roleplay_audio_chunks_received_total",
		Help: "Binary audio frames received from clients",
	})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roleplay_turns_total",
		Help: "Completed conversation turns",
	})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roleplay_turn_duration_seconds",
		Help:    "Time from final transcript to completed turn",
		Buckets: prometheus.DefBuckets,
	})

	GenerationFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roleplay_generation_fallbacks_total",
		Help: "Persona replies replaced by the fallback response",
	}, []string{"reason"})

	SynthesisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roleplay_synthesis_failures_total",
		Help: "Replies for which no audio could be produced",
	})
)

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiCallsLatencyMs,
		streamTurns,
		streamFrames,
		emotionClassifications,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per model.",
		},
		[]string{"model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per model.",
		},
		[]string{"model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "Blocking AI call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"model", "kind", "success"},
	)

	streamTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_stream_turns_total",
			Help: "Streaming turns by terminal outcome (completed/failed/cancelled).",
		},
		[]string{"model", "outcome"},
	)

	streamFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_stream_frames_total",
			Help: "Decoded upstream frames by kind (delta/raw_only/done).",
		},
		[]string{"kind"},
	)

	emotionClassifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_emotion_classifications_total",
			Help: "Emotion classifier outcomes (label/fallback).",
		},
		[]string{"outcome"},
	)
)

func ObserveAICall(model, kind string, latencyMs int64, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(model), kind, strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddTokens(model string, in, out int) {
	aiTokensIn.WithLabelValues(norm(model)).Add(float64(in))
	aiTokensOut.WithLabelValues(norm(model)).Add(float64(out))
}

func StreamTurnFinished(model, outcome string) {
	streamTurns.WithLabelValues(norm(model), outcome).Inc()
}

func StreamFrame(kind string) {
	streamFrames.WithLabelValues(kind).Inc()
}

func EmotionClassified(outcome string) {
	emotionClassifications.WithLabelValues(outcome).Inc()
}

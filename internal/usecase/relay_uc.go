// File: internal/usecase/relay_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"chatanon/internal/domain"
	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/adapter"
	"chatanon/internal/domain/ports/repository"
	"chatanon/internal/infra/logging"
	"chatanon/internal/infra/metrics"
)

// DoneSentinel is the terminal payload of a successful streaming turn.
const DoneSentinel = "[DONE]"

// fallbackEmotion is used whenever classification yields nothing.
const fallbackEmotion = "default"

// turnState tracks one streaming turn through its lifecycle. Failed is
// reachable from every non-terminal state.
type turnState string

const (
	stateInit           turnState = "init"
	stateEmotionPending turnState = "emotion_pending"
	stateEmotionSent    turnState = "emotion_sent"
	stateStreaming      turnState = "streaming"
	stateCompleted      turnState = "completed"
	stateFailed         turnState = "failed"
)

// Compile-time check
var _ RelayUseCase = (*relayUC)(nil)

// RelayUseCase runs one streaming chat turn: persist the user message,
// classify emotion, relay the generation stream live, persist the
// assembled reply on successful termination.
type RelayUseCase interface {
	StreamMessage(ctx context.Context, sessionID int64, userMessage string, out Emitter) error
}

type relayUC struct {
	store      repository.ConversationStore
	builder    *ContextBuilder
	classifier adapter.EmotionClassifier
	stream     adapter.StreamClient
	tokens     adapter.TokenCounter
	log        *zerolog.Logger

	classifyTimeout time.Duration
	streamTimeout   time.Duration
}

func NewRelayUseCase(
	store repository.ConversationStore,
	builder *ContextBuilder,
	classifier adapter.EmotionClassifier,
	stream adapter.StreamClient,
	tokens adapter.TokenCounter,
	logger *zerolog.Logger,
	classifyTimeout, streamTimeout time.Duration,
) *relayUC {
	if classifyTimeout <= 0 {
		classifyTimeout = 15 * time.Second
	}
	if streamTimeout <= 0 {
		streamTimeout = 10 * time.Minute
	}
	return &relayUC{
		store:           store,
		builder:         builder,
		classifier:      classifier,
		stream:          stream,
		tokens:          tokens,
		log:             logger,
		classifyTimeout: classifyTimeout,
		streamTimeout:   streamTimeout,
	}
}

// turn carries the per-turn state so the step methods stay small.
type turn struct {
	id      string
	state   turnState
	refs    *TurnRefs
	context []adapter.Message
	emotion string
	buf     strings.Builder
	out     Emitter
	log     *zerolog.Logger
}

func (t *turn) transition(next turnState) {
	t.log.Debug().Str("from", string(t.state)).Str("to", string(next)).Msg("turn transition")
	t.state = next
}

func (r *relayUC) StreamMessage(ctx context.Context, sessionID int64, userMessage string, out Emitter) error {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return fmt.Errorf("stream message: empty message: %w", domain.ErrInvalidArgument)
	}

	t := &turn{
		id:    ulid.Make().String(),
		state: stateInit,
		out:   out,
	}
	ctx = logging.WithSessID(ctx, sessionID)
	ctx = logging.WithTurnID(ctx, t.id)
	t.log = logging.With(ctx, r.log)
	defer logging.TraceDuration(t.log, "RelayUC.StreamMessage")()

	// Init: resolve session/model/role, then persist the user message.
	// The user message write is unconditional once resolution succeeds:
	// "message was sent" does not depend on the reply surviving.
	refs, err := r.builder.Resolve(ctx, sessionID)
	if err != nil {
		return r.fail(t, "", fmt.Errorf("resolve turn: %w", err))
	}
	t.refs = refs

	userMsg := model.NewUserMessage(sessionID, userMessage, r.tokens.Count(refs.Model.Version, userMessage))
	if err := r.store.AppendMessage(ctx, userMsg); err != nil {
		return r.fail(t, refs.Model.Version, fmt.Errorf("persist user message: %w", err))
	}
	metrics.AddTokens(refs.Model.Version, userMsg.Tokens, 0)

	// EmotionPending: build context (history now includes the user turn)
	// and classify. Classification is best-effort; its failure never
	// aborts the turn and the fallback label is emitted instead.
	t.transition(stateEmotionPending)
	t.context, err = r.builder.Build(ctx, refs)
	if err != nil {
		return r.fail(t, refs.Model.Version, fmt.Errorf("build context: %w", err))
	}
	t.emotion = r.classifyEmotion(ctx, t)

	payload, _ := json.Marshal(struct {
		Emotion string `json:"emotion"`
	}{t.emotion})
	if err := out.Event("emotion", string(payload)); err != nil {
		return r.fail(t, refs.Model.Version, fmt.Errorf("emit emotion event: %w", err))
	}
	t.transition(stateEmotionSent)

	// Streaming: same assembled context, relayed live.
	return r.streamAndPersist(ctx, t)
}

// classifyEmotion never fails the turn. Emotion is computed exactly once
// per streaming turn, always before generation starts.
func (r *relayUC) classifyEmotion(ctx context.Context, t *turn) string {
	if t.refs.EmotionProfile == nil {
		metrics.EmotionClassified("fallback")
		return fallbackEmotion
	}
	cctx, cancel := context.WithTimeout(ctx, r.classifyTimeout)
	defer cancel()
	label, err := r.classifier.Classify(cctx, t.refs.Model, t.refs.EmotionProfile.Prompt, t.context)
	if err != nil || label == "" {
		t.log.Warn().Err(err).Msg("emotion classification failed, using fallback label")
		metrics.EmotionClassified("fallback")
		return fallbackEmotion
	}
	metrics.EmotionClassified("label")
	return label
}

func (r *relayUC) streamAndPersist(ctx context.Context, t *turn) error {
	t.transition(stateStreaming)
	modelVersion := t.refs.Model.Version

	sctx, cancel := context.WithTimeout(ctx, r.streamTimeout)
	defer cancel()

	ch, err := r.stream.StreamGenerate(sctx, t.refs.Model, t.context)
	if err != nil {
		return r.fail(t, modelVersion, fmt.Errorf("open upstream stream: %w", err))
	}

	sawDone := false
	for chunk := range ch {
		if chunk.Err != nil {
			return r.fail(t, modelVersion, chunk.Err)
		}
		if chunk.Done {
			sawDone = true
			break
		}
		// Accumulate first, then relay the untouched frame payload.
		t.buf.WriteString(chunk.Delta)
		if err := t.out.Data(chunk.Raw); err != nil {
			return r.fail(t, modelVersion, fmt.Errorf("relay frame: %w", err))
		}
	}
	if !sawDone {
		if cerr := sctx.Err(); cerr != nil {
			return r.fail(t, modelVersion, cerr)
		}
		return r.fail(t, modelVersion, errors.New("upstream stream ended without terminal sentinel"))
	}

	// Completed: persist the assembled reply, then — and only then — emit
	// the terminal sentinel. The write runs on a detached context so a
	// caller disconnect after [DONE] arrived cannot lose a finished reply.
	content := t.buf.String()
	assistantMsg := model.NewAssistantMessage(t.refs.Session.ID, content, t.emotion, r.tokens.Count(modelVersion, content))
	pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pcancel()
	if err := r.store.AppendMessage(pctx, assistantMsg); err != nil {
		// Generation succeeded but the reply is not durable: surfaced to
		// the caller and logged as data loss, never silently dropped.
		t.log.Error().Err(err).Int("reply_bytes", len(content)).Msg("assistant reply generated but not persisted")
		return r.fail(t, modelVersion, fmt.Errorf("persist assistant message: %w", err))
	}
	metrics.AddTokens(modelVersion, 0, assistantMsg.Tokens)

	if err := t.out.Data(DoneSentinel); err != nil {
		t.log.Warn().Err(err).Msg("terminal event not delivered")
	}
	t.transition(stateCompleted)
	metrics.StreamTurnFinished(modelVersion, "completed")
	return nil
}

// fail terminates the turn from any non-terminal state: best-effort error
// event, metrics, and the error back to the caller. Nothing further is
// persisted; a partially accumulated reply is discarded.
func (r *relayUC) fail(t *turn, modelVersion string, err error) error {
	t.transition(stateFailed)
	if t.out != nil {
		_ = t.out.Event("error", err.Error())
	}
	outcome := "failed"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = "cancelled"
	}
	metrics.StreamTurnFinished(modelVersion, outcome)
	t.log.Warn().Err(err).Str("state", string(t.state)).Msg("streaming turn failed")
	return err
}

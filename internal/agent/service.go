package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/domain"
	"github.com/closerflow/whatsapp-agent/internal/llm"
	"github.com/closerflow/whatsapp-agent/internal/persona"
	"github.com/closerflow/whatsapp-agent/internal/prompt"
	"github.com/closerflow/whatsapp-agent/internal/store"
)

// Generation parameters shared by both channels.
const (
	DefaultModel             = "gpt-4o-mini"
	DefaultMaxTokens         = 320
	webhookFrequencyPenalty  = 0.3
	simulateFrequencyPenalty = 0.2
	presencePenalty          = 0.0
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Model     string
	MaxTokens int
	// LookupEnv resolves persona variables. Defaults to os.LookupEnv.
	LookupEnv persona.LookupFunc
}

// Service runs the conversation state machine for inbound messages and the
// stateless simulation flow.
type Service struct {
	sessions  store.SessionStore
	gateway   llm.Gateway
	model     string
	maxTokens int
	lookupEnv persona.LookupFunc
	metrics   *Metrics
	logger    *slog.Logger
}

// NewService creates a Service. metrics may be nil.
func NewService(sessions store.SessionStore, gateway llm.Gateway, cfg ServiceConfig, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.LookupEnv == nil {
		cfg.LookupEnv = os.LookupEnv
	}
	return &Service{
		sessions:  sessions,
		gateway:   gateway,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		lookupEnv: cfg.LookupEnv,
		metrics:   metrics,
		logger:    logger,
	}
}

// Persona resolves the deployment persona from the environment. An invalid
// configuration is logged and the built-in persona is used instead.
func (s *Service) Persona() persona.Persona {
	p, err := persona.FromEnv(s.lookupEnv)
	if err != nil {
		s.logger.Warn("Invalid persona configuration, using default persona", "error", err)
		s.metrics.incPersonaFallback()
	}
	return p
}

// HandleMessage processes one inbound message from a verified sender and
// returns the text to send back. It never fails: storage and generation
// errors produce a canned reply.
//
// The user turn is stored before generation starts and the assistant turn
// only after it succeeds, so a failed generation leaves the user turn in
// place. The store is not locked while the gateway call is in flight; if the
// session expires or is evicted meanwhile, the next append reseeds the greeting.
func (s *Service) HandleMessage(ctx context.Context, senderID, body string) Reply {
	p := s.Persona()
	canned := repliesFor(p.Language)

	text := strings.TrimSpace(body)
	if text == "" {
		return Reply{Text: canned.clarification, Outcome: OutcomeClarification}
	}
	if senderID == "" {
		senderID = UnknownSender
	}

	log := s.logger.With("sender", senderID)
	greeting := greetingFor(p)

	if _, err := s.sessions.GetOrCreate(ctx, senderID, greeting); err != nil {
		log.Error("Failed to load session", "error", err)
		return Reply{Text: canned.technical, Outcome: OutcomeDegraded}
	}
	session, err := s.sessions.Append(ctx, senderID, greeting, domain.UserTurn(text))
	if err != nil {
		log.Error("Failed to store user turn", "error", err)
		return Reply{Text: canned.technical, Outcome: OutcomeDegraded}
	}

	system, temperature := prompt.Compile(p)
	resp, err := s.complete(ctx, channelWebhook, llm.Request{
		Model:            s.model,
		Temperature:      temperature,
		MaxTokens:        s.maxTokens,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: webhookFrequencyPenalty,
		Messages:         llm.Conversation(system, session.Turns),
	})
	if err != nil {
		log.Error("Reply generation failed", "error", err, "turns", len(session.Turns))
		return Reply{Text: canned.technical, Outcome: OutcomeDegraded}
	}

	reply := resp.FirstText()
	if reply == "" {
		reply = canned.rephrase
	}
	if _, err := s.sessions.Append(ctx, senderID, greeting, domain.AssistantTurn(reply)); err != nil {
		log.Error("Failed to store assistant turn", "error", err)
	}

	log.Info("Replied to prospect", "turns", len(session.Turns)+1, "reply_length", len(reply))
	return Reply{Text: reply, Outcome: OutcomeReplied}
}

// Simulate generates one reply for a caller-supplied persona and history. No
// session state is read or written. Invalid input returns a
// *domain.ValidationError and gateway failures a *domain.GenerationError.
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (string, error) {
	req.Config = persona.Normalize(req.Config)
	if err := domain.ValidateStruct(req); err != nil {
		return "", err
	}

	system, temperature := prompt.Compile(req.Config)
	resp, err := s.complete(ctx, channelSimulate, llm.Request{
		Model:            s.model,
		Temperature:      temperature,
		MaxTokens:        s.maxTokens,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: simulateFrequencyPenalty,
		Messages:         llm.Conversation(system, req.Conversation),
	})
	if err != nil {
		return "", fmt.Errorf("simulate: %w", err)
	}

	if reply := resp.FirstText(); reply != "" {
		return reply, nil
	}
	return repliesFor(req.Config.Language).simulateFallback, nil
}

func (s *Service) complete(ctx context.Context, channel string, req llm.Request) (*llm.Response, error) {
	started := time.Now()
	resp, err := s.gateway.Complete(ctx, req)
	s.metrics.observeGeneration(channel, time.Since(started), err)
	return resp, err
}

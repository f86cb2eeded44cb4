package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/api"
	"github.com/closerflow/whatsapp-agent/internal/domain"
	"github.com/closerflow/whatsapp-agent/internal/whatsapp"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// HandlerConfig holds the credentials and limits used by the HTTP handlers.
type HandlerConfig struct {
	OpenAIAPIKey       string
	TwilioAuthToken    string
	WebhookURL         string // public URL Twilio signs; empty rebuilds it from the request
	DedupTTL           time.Duration
	MaxRequestBodySize int64
}

// Handler serves the webhook and simulation endpoints.
type Handler struct {
	service  *Service
	cfg      HandlerConfig
	verifier *whatsapp.Verifier
	replies  *replyCache
	metrics  *Metrics
	logger   *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(service *Service, cfg HandlerConfig, metrics *Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	h := &Handler{
		service: service,
		cfg:     cfg,
		replies: newReplyCache(cfg.DedupTTL),
		metrics: metrics,
		logger:  logger,
	}
	if cfg.TwilioAuthToken != "" {
		h.verifier = whatsapp.NewVerifier(cfg.TwilioAuthToken)
	}
	return h
}

// RegisterRoutes registers the public agent routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/webhooks/whatsapp", h.HandleWebhookStatus)
		r.Post("/webhooks/whatsapp", h.HandleWebhook)
		r.Post("/simulate", h.HandleSimulate)
	})
}

// HandleWebhookStatus handles GET /api/webhooks/whatsapp.
func (h *Handler) HandleWebhookStatus(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, WebhookStatus{
		Status: "ready",
		Info:   "POST Twilio webhook payloads to this endpoint.",
	})
}

// HandleWebhook handles POST /api/webhooks/whatsapp.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	reqID := chiMiddleware.GetReqID(r.Context())

	if err := h.webhookCredentials(); err != nil {
		h.logger.Error("Webhook is not configured", "error", err, "request_id", reqID)
		h.metrics.observeReply(OutcomeMisconfigured)
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBodySize)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		// A truncated body cannot match the signature and is rejected below.
		h.logger.Warn("Failed to read webhook body", "error", err, "request_id", reqID)
	}
	fields, err := whatsapp.DecodeForm(raw)
	if err != nil {
		h.logger.Warn("Malformed webhook body", "error", err, "request_id", reqID)
	}

	callbackURL := whatsapp.ValidationURL(r, h.cfg.WebhookURL)
	if err := h.verifier.Verify(callbackURL, fields, r.Header.Get(whatsapp.SignatureHeader)); err != nil {
		h.logger.Warn("Rejected webhook with invalid signature", "url", callbackURL, "request_id", reqID)
		h.metrics.observeReply(OutcomeRejected)
		api.Error(w, http.StatusUnauthorized, "invalid Twilio signature")
		return
	}

	messageID := fields[whatsapp.FieldMessageSid]
	sender := fields[whatsapp.FieldFrom]
	if sender == "" {
		sender = UnknownSender
	}

	// The provider may give up on the request; the turn still completes.
	ctx := context.WithoutCancel(r.Context())
	reply := h.replies.resolve(messageID, func() Reply {
		return h.service.HandleMessage(ctx, sender, fields[whatsapp.FieldBody])
	})
	h.metrics.observeReply(reply.Outcome)

	h.logger.Info("Webhook handled",
		"sender", sender,
		"message_sid", messageID,
		"outcome", reply.Outcome,
		"request_id", reqID,
	)
	writeTwiML(w, reply.Text)
}

// HandleSimulate handles POST /api/simulate.
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	if h.cfg.OpenAIAPIKey == "" {
		err := &domain.ConfigurationError{Setting: "OPENAI_API_KEY"}
		h.logger.Error("Simulation is not configured", "error", err)
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBodySize)
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrorWithDetails(w, http.StatusBadRequest, "invalid simulation payload", err.Error())
		return
	}

	reply, err := h.service.Simulate(context.WithoutCancel(r.Context()), req)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			api.ErrorWithDetails(w, http.StatusBadRequest, "invalid simulation payload", validationErr.Error())
			return
		}
		h.logger.Error("Simulation failed", "error", err, "request_id", chiMiddleware.GetReqID(r.Context()))
		api.ErrorWithDetails(w, http.StatusInternalServerError, "reply generation failed", err.Error())
		return
	}

	api.JSON(w, http.StatusOK, SimulateResponse{Reply: reply})
}

func (h *Handler) webhookCredentials() error {
	if h.cfg.OpenAIAPIKey == "" {
		return &domain.ConfigurationError{Setting: "OPENAI_API_KEY"}
	}
	if h.verifier == nil {
		return &domain.ConfigurationError{Setting: "TWILIO_AUTH_TOKEN"}
	}
	return nil
}

func writeTwiML(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, whatsapp.MessageReply(text))
}

// Package agent implements the sales qualification agent: the inbound message
// state machine and its HTTP surfaces.
package agent

import (
	"github.com/closerflow/whatsapp-agent/internal/domain"
	"github.com/closerflow/whatsapp-agent/internal/persona"
)

// UnknownSender keys the session of a webhook call that carries no From field.
const UnknownSender = "unknown-sender"

// Outcome is the terminal state reached by an inbound request.
type Outcome string

const (
	// OutcomeReplied means generation succeeded and both turns were stored.
	OutcomeReplied Outcome = "replied"
	// OutcomeDegraded means generation or storage failed and a canned reply was sent.
	OutcomeDegraded Outcome = "degraded_reply"
	// OutcomeClarification means the message was empty and nothing was stored.
	OutcomeClarification Outcome = "clarification"
	// OutcomeDuplicate means a redelivered message got its cached reply.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeRejected means the signature did not match.
	OutcomeRejected Outcome = "rejected"
	// OutcomeMisconfigured means a required credential is missing.
	OutcomeMisconfigured Outcome = "misconfigured"
)

// Reply is the text sent back to the prospect and how it was produced.
type Reply struct {
	Text    string
	Outcome Outcome
}

// SimulateRequest is the body of the test endpoint. The caller owns the history.
type SimulateRequest struct {
	Config       persona.Persona `json:"config"`
	Conversation []domain.Turn   `json:"conversation" validate:"min=1,dive"`
}

// SimulateResponse is the success body of the test endpoint.
type SimulateResponse struct {
	Reply string `json:"reply"`
}

// WebhookStatus is returned by GET on the webhook path.
type WebhookStatus struct {
	Status string `json:"status"`
	Info   string `json:"info"`
}

// Package notify is the outbound notification collaborator. Delivery is
// best-effort: Notify reports success as a boolean and never returns an error,
// so state transitions in the services are never blocked by mail outages.
package notify

import (
	"context"
	"log"
)

// Kind names the notification templates the platform sends.
type Kind string

const (
	KindVerification           Kind = "verification"
	KindPasswordReset          Kind = "password_reset"
	KindQualification          Kind = "qualification"
	KindSubmissionConfirmation Kind = "submission_confirmation"
)

// Payload carries template variables (team name, tokens, problem title, ...).
type Payload map[string]string

// Notifier is the fire-and-forget delivery contract.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, recipient string, payload Payload) bool
}

// FailureHook observes delivery failures without being able to block them.
type FailureHook func(kind Kind, recipient string)

// LogNotifier simulates delivery by logging, mirroring the behavior of an
// unconfigured mail account. It always reports success.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, kind Kind, recipient string, payload Payload) bool {
	log.Printf("[simulated] %s notification for %s: %v", kind, recipient, payload)
	return true
}

// Package notify delivers plain-text messages to users through a pluggable
// gateway and applies a per-call-site failure policy.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/adoptrack/internal/metrics"
	"github.com/dukerupert/adoptrack/internal/model"
)

// ErrDelivery wraps any gateway failure surfaced by a Fatal send.
var ErrDelivery = errors.New("notification delivery failed")

type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// Policy decides what a failed delivery means to the caller.
type Policy int

const (
	// BestEffort logs the failure and reports success.
	BestEffort Policy = iota
	// Fatal returns the failure so the caller can abort its operation.
	Fatal
)

func (p Policy) String() string {
	if p == Fatal {
		return "fatal"
	}
	return "best_effort"
}

// Gateway sends a message to a single user. Implementations are synchronous
// and do not retry.
type Gateway interface {
	SendToUser(ctx context.Context, user model.User, text string, priority Priority) error
}

type Notifier struct {
	gateway Gateway
	channel string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New wraps gw. channel labels metrics and log lines ("log", "email", "push").
func New(gw Gateway, channel string, logger *slog.Logger, m *metrics.Metrics) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		gateway: gw,
		channel: channel,
		logger:  logger.With("component", "notify", "channel", channel),
		metrics: m,
	}
}

// Send delivers text to user. Fatal messages go out with high priority.
func (n *Notifier) Send(ctx context.Context, policy Policy, user model.User, text string) error {
	priority := PriorityNormal
	if policy == Fatal {
		priority = PriorityHigh
	}

	err := n.gateway.SendToUser(ctx, user, text, priority)
	if err == nil {
		n.metrics.IncNotification(n.channel, policy.String(), "sent")
		return nil
	}

	n.metrics.IncNotification(n.channel, policy.String(), "failed")
	if policy == BestEffort {
		n.logger.Warn("notification not delivered",
			"user_id", user.ID,
			"policy", policy.String(),
			"error", err,
		)
		return nil
	}
	return fmt.Errorf("%w: user %d: %v", ErrDelivery, user.ID, err)
}

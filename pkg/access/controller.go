package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/storage"
	"mercator-hq/parley/pkg/telemetry/metrics"
)

// Default quotas for unsubscribed users.
const (
	DefaultNewChatQuota = 3
	DefaultMessageQuota = 20
)

// Store is the durable state the controller reads and reconciles.
type Store interface {
	GetChat(ctx context.Context, id string) (*storage.ChatRecord, error)
	CountChats(ctx context.Context, userID string) (int, error)
	GetUser(ctx context.Context, id string) (*storage.UserRecord, error)
	SetSubscribed(ctx context.Context, id string, subscribed bool) error
}

// PremiumClassifier reports whether a model id is gated behind a subscription.
type PremiumClassifier interface {
	IsPremium(modelID string) bool
}

// Controller enforces free-plan quotas and premium gating.
type Controller struct {
	store   Store
	billing Billing
	premium PremiumClassifier
	metrics *metrics.Collector
	logger  *slog.Logger

	newChatQuota int
	messageQuota int
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records decisions on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Controller) { c.metrics = collector }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller. billing may be nil.
func NewController(store Store, billing Billing, premium PremiumClassifier, cfg config.AccessConfig, opts ...Option) *Controller {
	if billing == nil {
		billing = NoBilling{}
	}
	c := &Controller{
		store:        store,
		billing:      billing,
		premium:      premium,
		logger:       slog.Default().With("component", "access"),
		newChatQuota: cfg.NewChatQuota,
		messageQuota: cfg.MessageQuota,
	}
	if c.newChatQuota <= 0 {
		c.newChatQuota = DefaultNewChatQuota
	}
	if c.messageQuota <= 0 {
		c.messageQuota = DefaultMessageQuota
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate decides whether userID may send one more turn to sessionID using
// model. A rejection is returned both in the Decision and as an
// *AccessDeniedError; any other error is a store failure.
//
// Quotas are checked before premium gating, so an unsubscribed user past the
// chat quota sees quota_new_chat even when asking for a premium model.
func (c *Controller) Evaluate(ctx context.Context, userID, sessionID, model string) (*Decision, error) {
	start := time.Now()

	d, err := c.evaluate(ctx, userID, sessionID, model)
	if err != nil {
		var denied *AccessDeniedError
		if errors.As(err, &denied) {
			c.metrics.RecordAccessDecision(denied.Reason, time.Since(start))
			c.logger.InfoContext(ctx, "turn rejected",
				"user_id", userID,
				"session_id", sessionID,
				"model", model,
				"reason", denied.Reason,
			)
		}
		return d, err
	}

	c.metrics.RecordAccessDecision("", time.Since(start))
	return d, nil
}

func (c *Controller) evaluate(ctx context.Context, userID, sessionID, model string) (*Decision, error) {
	subscribed, err := c.resolveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := &Decision{Subscribed: subscribed}

	chat, err := c.store.GetChat(ctx, sessionID)
	switch {
	case err == nil:
		d.Existing = true
		d.MessageCount = chat.MessageCount
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("load chat: %w", err)
	}

	if !subscribed {
		if !d.Existing {
			n, err := c.store.CountChats(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("count chats: %w", err)
			}
			if n >= c.newChatQuota {
				return deny(d, ReasonQuotaNewChat)
			}
		} else if d.MessageCount >= c.messageQuota {
			return deny(d, ReasonQuotaMessages)
		}

		if c.premium != nil && c.premium.IsPremium(model) {
			return deny(d, ReasonPremiumRequired)
		}
	}

	d.Allowed = true
	return d, nil
}

func deny(d *Decision, reason string) (*Decision, error) {
	d.Reason = reason
	return d, Denied(reason)
}

// CheckPremium re-resolves the subscription right before a premium model is
// called.
func (c *Controller) CheckPremium(ctx context.Context, userID string) (bool, error) {
	subscribed, err := c.resolveSubscription(ctx, userID)
	if err != nil {
		return false, err
	}
	if !subscribed {
		c.metrics.RecordAccessDecision(ReasonPremiumRequired, 0)
	}
	return subscribed, nil
}

// resolveSubscription returns the billing provider's answer when a
// subscription id is on file and writes it back if it differs from the
// stored flag. Billing failures fall back to the stored flag.
func (c *Controller) resolveSubscription(ctx context.Context, userID string) (bool, error) {
	user, err := c.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if user.SubscriptionID == "" {
		return user.IsSubscribed, nil
	}

	start := time.Now()
	active, err := c.billing.SubscriptionActive(ctx, user.SubscriptionID)
	if err != nil {
		if !errors.Is(err, ErrBillingDisabled) {
			c.metrics.RecordBillingLookup("error", time.Since(start))
			c.logger.WarnContext(ctx, "subscription lookup failed, using stored flag",
				"user_id", userID,
				"billing", c.billing.Name(),
				"error", err,
			)
		}
		return user.IsSubscribed, nil
	}

	result := "unsubscribed"
	if active {
		result = "subscribed"
	}
	c.metrics.RecordBillingLookup(result, time.Since(start))

	if active != user.IsSubscribed {
		if err := c.store.SetSubscribed(ctx, userID, active); err != nil {
			c.logger.WarnContext(ctx, "failed to store subscription state",
				"user_id", userID,
				"error", err,
			)
		} else {
			c.logger.InfoContext(ctx, "subscription state changed",
				"user_id", userID,
				"subscribed", active,
			)
		}
	}
	return active, nil
}

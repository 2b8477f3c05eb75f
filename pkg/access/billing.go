package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"mercator-hq/parley/pkg/config"
)

// Billing answers whether a subscription currently grants premium access.
type Billing interface {
	// SubscriptionActive reports whether subscriptionID is in good standing.
	// A subscription the provider does not know is inactive, not an error.
	SubscriptionActive(ctx context.Context, subscriptionID string) (bool, error)

	// Name identifies the collaborator in logs.
	Name() string
}

// NoBilling trusts the durable subscription flag. It is used when no billing
// provider is configured.
type NoBilling struct{}

// SubscriptionActive always fails so callers fall back to the stored flag.
func (NoBilling) SubscriptionActive(context.Context, string) (bool, error) {
	return false, ErrBillingDisabled
}

// Name returns "none".
func (NoBilling) Name() string { return "none" }

// ErrBillingDisabled is returned by NoBilling.
var ErrBillingDisabled = errors.New("billing provider not configured")

// subscriptionGetter is the part of the Stripe client the gateway uses.
type subscriptionGetter interface {
	Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// StripeBilling looks subscriptions up in Stripe.
type StripeBilling struct {
	subs    subscriptionGetter
	timeout time.Duration
}

// NewStripeBilling creates a Stripe-backed billing collaborator.
func NewStripeBilling(apiKey string, timeout time.Duration) (*StripeBilling, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stripe API key is required")
	}

	sc := &client.API{}
	sc.Init(apiKey, nil)

	return newStripeBilling(sc.Subscriptions, timeout), nil
}

func newStripeBilling(subs subscriptionGetter, timeout time.Duration) *StripeBilling {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StripeBilling{subs: subs, timeout: timeout}
}

// SubscriptionActive treats active and trialing subscriptions as subscribed.
func (s *StripeBilling) SubscriptionActive(ctx context.Context, subscriptionID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := s.subs.Get(subscriptionID, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("stripe subscription lookup: %w", err)
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return true, nil
	default:
		return false, nil
	}
}

// Name returns "stripe".
func (s *StripeBilling) Name() string { return "stripe" }

// NewBilling builds the configured billing collaborator.
func NewBilling(cfg config.BillingConfig) (Billing, error) {
	switch cfg.Provider {
	case "", "none":
		return NoBilling{}, nil
	case "stripe":
		return NewStripeBilling(cfg.StripeAPIKey, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown billing provider %q", cfg.Provider)
	}
}

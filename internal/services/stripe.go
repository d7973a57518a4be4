package services

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

// StripeVerifier double-checks a checkout success signal against Stripe
// before it is trusted. Verification is optional: without a secret key
// the signal from the embedded checkout surface is accepted as-is.
type StripeVerifier struct {
	enabled bool
}

// NewStripeVerifier configures the Stripe API key. An empty key
// disables verification.
func NewStripeVerifier(secretKey string) *StripeVerifier {
	if secretKey == "" {
		return &StripeVerifier{}
	}
	stripe.Key = secretKey
	return &StripeVerifier{enabled: true}
}

// Enabled reports whether success signals are verified against Stripe.
func (v *StripeVerifier) Enabled() bool {
	return v.enabled
}

// SessionIDFromClientSecret extracts the checkout session reference
// from an embedded-checkout client secret (cs_..._secret_...).
func SessionIDFromClientSecret(secret string) string {
	if i := strings.Index(secret, "_secret_"); i > 0 {
		return secret[:i]
	}
	return ""
}

// Confirm checks that the checkout session actually completed.
func (v *StripeVerifier) Confirm(sessionID string) error {
	if !v.enabled {
		return nil
	}
	if sessionID == "" {
		return fmt.Errorf("tentativa de pagamento sem referência de sessão")
	}
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return fmt.Errorf("falha ao confirmar o pagamento: %w", err)
	}
	if sess.Status != stripe.CheckoutSessionStatusComplete {
		return fmt.Errorf("pagamento ainda não confirmado (status %s)", sess.Status)
	}
	return nil
}

package card

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
)

type demoTokenizer struct{}

// NewDemoTokenizer returns the demo-mode tokenizer. Tokens are derived from
// the card number so repeat submissions are stable, and the number itself
// never leaves the process.
func NewDemoTokenizer() Tokenizer {
	return demoTokenizer{}
}

func (demoTokenizer) Tokenize(_ context.Context, details Details, _ Billing) (string, error) {
	number := strings.ReplaceAll(details.Number, " ", "")
	if len(number) < 12 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "card number looks invalid")
	}
	sum := sha256.Sum256([]byte(number))
	return "pm_demo_" + hex.EncodeToString(sum[:])[:10], nil
}

type demoConfirmer struct {
	delay time.Duration
}

// NewDemoConfirmer returns a confirmer that always succeeds after the demo
// delay, matching the synthesized intent gateway.
func NewDemoConfirmer(delay time.Duration) Confirmer {
	return demoConfirmer{delay: delay}
}

func (c demoConfirmer) Confirm(ctx context.Context, intentID string, _ *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "demo confirmation cancelled")
		case <-time.After(c.delay):
		}
	}
	return &stripe.PaymentIntent{
		ID:     intentID,
		Status: stripe.PaymentIntentStatusSucceeded,
	}, nil
}

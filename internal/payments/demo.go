package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/money"
)

// demoGateway synthesizes deterministic-looking intents without touching the
// network. It is selected only by the explicit demo-mode configuration flag,
// never as a fallback when a live backend call fails.
type demoGateway struct {
	delay time.Duration
	logg  *logger.Logger

	mu      sync.Mutex
	intents map[string]*IntentStatus
}

// NewDemoGateway builds the configuration-gated demo gateway.
func NewDemoGateway(delay time.Duration, logg *logger.Logger) IntentGateway {
	return &demoGateway{
		delay:   delay,
		logg:    logg,
		intents: map[string]*IntentStatus{},
	}
}

func (g *demoGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	if err := validateIntentRequest(req); err != nil {
		return nil, err
	}

	cents := money.MinorUnits(req.Amount)
	if err := money.ValidateMinimum(cents, MinimumChargeMinorUnits); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid amount").
			WithDetails(map[string]any{"error": err.Error()})
	}

	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	// Deterministic for a fixed order ID so demo runs are reproducible.
	digest := sha256.Sum256([]byte(req.OrderID))
	suffix := hex.EncodeToString(digest[:8])
	intentID := "pi_demo_" + suffix
	secret := fmt.Sprintf("%s_secret_%s", intentID, hex.EncodeToString(digest[8:16]))

	g.mu.Lock()
	g.intents[intentID] = &IntentStatus{
		IntentID:    intentID,
		Status:      "requires_confirmation",
		AmountMinor: cents,
		Currency:    strings.ToLower(req.Currency),
	}
	g.mu.Unlock()

	if g.logg != nil {
		g.logg.Info(g.logg.WithField(ctx, "intent_id", intentID), "demo payment_intent synthesized")
	}

	return &IntentResult{IntentID: intentID, ClientSecret: secret}, nil
}

func (g *demoGateway) GetIntent(ctx context.Context, intentID string) (*IntentStatus, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.intents[intentID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	copied := *status
	return &copied, nil
}

func (g *demoGateway) simulateLatency(ctx context.Context) error {
	if g.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(g.delay):
		return nil
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "demo intent creation cancelled")
	}
}

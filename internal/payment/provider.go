package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Intent is what a payment provider hands back for a new charge.
type Intent struct {
	ID           string
	ClientSecret string
}

// Provider creates payment intents. Confirmation of the payment itself
// happens between the client and the provider.
type Provider interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error)
}

// StubProvider issues locally generated intents without calling any gateway.
type StubProvider struct{}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (p *StubProvider) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("payment amount must not be negative: %s", amount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := hexID()
	return &Intent{
		ID:           "pi_" + id,
		ClientSecret: "cs_" + id + "_dummy",
	}, nil
}

func hexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

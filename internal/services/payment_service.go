package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

// PaymentProvider starts a payment the client completes out of band.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, email string) (clientSecret string, err error)
}

type StripeProvider struct {
	api *client.API
}

// NewStripeProvider returns a provider backed by the Stripe API client.
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

func (p *StripeProvider) CreateIntent(ctx context.Context, amountCents int64, currency, email string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	params.AddMetadata("email", email)
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode >= 400 && serr.HTTPStatusCode < 500 && serr.HTTPStatusCode != http.StatusTooManyRequests {
			return "", core.InvalidInput("price", serr.Msg)
		}
		return "", core.Unavailable(fmt.Errorf("stripe: %w", err))
	}
	return pi.ClientSecret, nil
}

type PaymentService struct {
	engine   *query.Engine
	provider PaymentProvider
	currency string
}

// NewPaymentService creates a payment service charging in currency.
func NewPaymentService(engine *query.Engine, provider PaymentProvider, currency string) *PaymentService {
	return &PaymentService{engine: engine, provider: provider, currency: currency}
}

// CreateIntent converts a price in major units to cents and asks the
// provider for a client secret.
func (s *PaymentService) CreateIntent(ctx context.Context, email string, req *models.CreatePaymentIntentRequest) (models.PaymentIntentResponse, error) {
	cents := int64(math.Round(req.Price * 100))
	if cents < 1 {
		return models.PaymentIntentResponse{}, core.InvalidInput("price", "price must be at least 0.01")
	}
	secret, err := s.provider.CreateIntent(ctx, cents, s.currency, email)
	if err != nil {
		return models.PaymentIntentResponse{}, err
	}
	return models.PaymentIntentResponse{ClientSecret: secret}, nil
}

// Save records a completed payment and upgrades the payer to gold. The payer
// must be registered. A transaction id can only be recorded once; replaying
// it for the same payer re-applies the upgrade and still reports a conflict.
func (s *PaymentService) Save(ctx context.Context, email string, req *models.SavePaymentRequest) (models.Payment, error) {
	if _, err := query.FindOne[models.User](ctx, s.engine, query.Users, byEmail(email)); err != nil {
		return models.Payment{}, err
	}

	p := models.Payment{
		Email:         email,
		Amount:        req.Amount,
		Currency:      s.currency,
		TransactionID: req.TransactionID,
		CreatedAt:     s.engine.Now(),
	}
	id, err := query.Insert(ctx, s.engine, query.Payments, p)
	if errors.Is(err, core.ErrConflict) {
		return s.replay(ctx, email, req.TransactionID, err)
	}
	if err != nil {
		return models.Payment{}, err
	}
	p.ID = id

	if err := s.upgrade(ctx, email); err != nil {
		return p, err
	}
	return p, nil
}

// replay handles a transaction id that is already recorded. For the same
// payer the gold upgrade is applied again.
func (s *PaymentService) replay(ctx context.Context, email, transactionID string, conflict error) (models.Payment, error) {
	prev, err := query.FindOne[models.Payment](ctx, s.engine, query.Payments, storage.Filter{storage.Eq("transaction_id", transactionID)})
	if err != nil {
		return models.Payment{}, err
	}
	if prev.Email != email {
		return models.Payment{}, conflict
	}
	if err := s.upgrade(ctx, email); err != nil {
		return models.Payment{}, err
	}
	return prev, conflict
}

func (s *PaymentService) upgrade(ctx context.Context, email string) error {
	if _, err := query.SetFieldsWhere(ctx, s.engine, query.Users, byEmail(email), map[string]any{"badge": models.BadgeGold}); err != nil {
		return fmt.Errorf("upgrade %s to gold: %w", email, err)
	}
	return nil
}

package service

import (
	"context"
	"fmt"

	"github.com/jaevor/go-nanoid"

	"github.com/MaxAltyn/Cash-Healer/core/metrics"
	"github.com/MaxAltyn/Cash-Healer/internal/model"
	"github.com/MaxAltyn/Cash-Healer/internal/storage"
	"github.com/MaxAltyn/Cash-Healer/internal/yookassa"
)

const incidentCodeLength = 10

// PaymentGateway is the subset of the payment provider the flows depend on.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, amount int, description string) (*yookassa.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*yookassa.Status, error)
}

// Offering describes one sellable service.
type Offering struct {
	Price int
	// URL is the detox questionnaire link or the modeling mini-app base, per service.
	URL string
}

// Config carries the service catalog.
type Config struct {
	Detox    Offering
	Modeling Offering
}

// Service implements the order and payment flows.
type Service struct {
	store   storage.Store
	gateway PaymentGateway
	cfg     Config
	metrics *metrics.BotMetrics

	incidentCode func() string
}

// New wires the flows. Metrics may be nil.
func New(store storage.Store, gateway PaymentGateway, cfg Config, m *metrics.BotMetrics) (*Service, error) {
	gen, err := nanoid.Standard(incidentCodeLength)
	if err != nil {
		return nil, fmt.Errorf("service: incident code generator: %w", err)
	}
	return &Service{
		store:        store,
		gateway:      gateway,
		cfg:          cfg,
		metrics:      m,
		incidentCode: gen,
	}, nil
}

// offering resolves the catalog entry for a service type.
func (s *Service) offering(st model.ServiceType) (Offering, error) {
	switch st {
	case model.ServiceDetox:
		return s.cfg.Detox, nil
	case model.ServiceModeling:
		return s.cfg.Modeling, nil
	}
	return Offering{}, fmt.Errorf("service: unknown service type %q", st)
}

// EnsureUser creates or refreshes the user record for an inbound update.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// EnsureUser upserts the Telegram user before any routing decision.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, p Profile) (model.User, error) {
	u, err := s.store.UpsertUser(ctx, telegramID, storage.UserProfile{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

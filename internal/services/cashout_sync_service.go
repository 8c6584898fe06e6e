package services

import (
	"context"
	"errors"
	"fmt"

	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"
	"cashbox/internal/storage"
)

// CurrencyRepository is the local store behind the sync service.
type CurrencyRepository interface {
	records.Store
	GetCurrency(ctx context.Context, id string) (*storage.StoredCurrency, error)
	Close() error
}

// CashOutPublisher announces committed cash-outs to the sync worker.
type CashOutPublisher interface {
	PublishCashOutSync(ctx context.Context, currencyID string, version int64) error
	Close() error
}

// CashOutSyncService writes cash-outs to the local database and then
// publishes a sync message so the worker can mirror them remotely.
type CashOutSyncService struct {
	repo      CurrencyRepository
	publisher CashOutPublisher
	logger    *log.Logger
}

// NewCashOutSyncService wires the service. publisher may be nil, in which
// case the worker's periodic pass picks the pending rows up.
func NewCashOutSyncService(repo CurrencyRepository, publisher CashOutPublisher, logger *log.Logger) *CashOutSyncService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &CashOutSyncService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentBoxes),
	}
}

func (s *CashOutSyncService) ListCurrencies(ctx context.Context) ([]core.CurrencyRecord, error) {
	return s.repo.ListCurrencies(ctx)
}

// UpdateCurrency saves the update locally first. Publishing is best effort:
// a failed publish leaves the row pending and never fails the update.
func (s *CashOutSyncService) UpdateCurrency(ctx context.Context, id string, u core.CurrencyUpdate) error {
	if err := s.repo.UpdateCurrency(ctx, id, u); err != nil {
		return fmt.Errorf("save currency: %w", err)
	}

	stored, err := s.repo.GetCurrency(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read back currency version", log.FieldBoxID, id, log.FieldError, err)
		return nil
	}

	if err := s.publish(ctx, id, stored.Version); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldBoxID, id,
			"version", stored.Version,
			log.FieldError, err)
	}
	return nil
}

func (s *CashOutSyncService) publish(ctx context.Context, id string, version int64) error {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping sync message", log.FieldBoxID, id)
		return nil
	}
	return s.publisher.PublishCashOutSync(ctx, id, version)
}

// Close closes both storage and AMQP connections
func (s *CashOutSyncService) Close() error {
	var errs []error
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close cash-out sync service: %w", err)
	}
	return nil
}

var _ records.Store = (*CashOutSyncService)(nil)

package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	alerts "fuelretail-cloud/internal/alerts/domain"
	"fuelretail-cloud/internal/auth"
	"fuelretail-cloud/internal/observability/metrics"
)

// AlertService records and manages reconciliation alerts. Recording
// never fails the write path that triggered it.
type AlertService struct {
	repo alerts.Repository
}

// NewAlertService constructs the service.
func NewAlertService(repo alerts.Repository) (*AlertService, error) {
	if repo == nil {
		return nil, errors.New("alert service: nil repository")
	}
	return &AlertService{repo: repo}, nil
}

// RecordInconsistentWrite files an alert for a sale whose pump meter
// update could not be confirmed.
func (s *AlertService) RecordInconsistentWrite(ctx context.Context, stationID, pumpID, saleID, detail string) error {
	alert := &alerts.Alert{
		ID:        uuid.NewString(),
		StationID: stationID,
		PumpID:    pumpID,
		SaleID:    saleID,
		Kind:      alerts.KindInconsistentWrite,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	metrics.ObserveReconciliationAlert()
	if err := s.repo.Create(ctx, alert); err != nil {
		// The sale path already failed; losing the alert too would
		// hide the anomaly, so at least log it.
		log.Printf("alert record failed station=%s pump=%s sale=%s: %v", stationID, pumpID, saleID, err)
		return err
	}
	return nil
}

// Resolve marks an alert handled.
func (s *AlertService) Resolve(ctx context.Context, id string) (*alerts.Alert, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	if err := s.repo.Resolve(ctx, id, identity.Subject, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// List returns alerts matching the query.
func (s *AlertService) List(ctx context.Context, query alerts.Query) ([]alerts.Alert, error) {
	return s.repo.List(ctx, query)
}

package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fuelretail-cloud/internal/auth"
	masterdata "fuelretail-cloud/internal/masterdata/domain"
	"fuelretail-cloud/internal/observability/metrics"
	sales "fuelretail-cloud/internal/sales/domain"
)

// SaleRecorded is emitted after a sale and its pump meter advance commit.
type SaleRecorded struct {
	SaleID      string
	StationID   string
	TotalAmount float64
	OccurredAt  time.Time
}

// AlertRecorder records reconciliation warnings for partial writes.
type AlertRecorder interface {
	RecordInconsistentWrite(ctx context.Context, stationID, pumpID, saleID, detail string) error
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// SaleService handles the sale recording workflow.
type SaleService struct {
	repo           sales.Repository
	pumps          masterdata.PumpRepository
	products       masterdata.ProductRepository
	prices         masterdata.PriceRepository
	stationChecker auth.StationAccessChecker
	alerts         AlertRecorder
	publisher      EventPublisher
	clock          Clock
}

// NewSaleService constructs the service.
func NewSaleService(
	repo sales.Repository,
	pumps masterdata.PumpRepository,
	products masterdata.ProductRepository,
	prices masterdata.PriceRepository,
	stationChecker auth.StationAccessChecker,
	alerts AlertRecorder,
	publisher EventPublisher,
	clock Clock,
) (*SaleService, error) {
	if repo == nil {
		return nil, errors.New("sale service: nil repository")
	}
	if pumps == nil {
		return nil, errors.New("sale service: nil pump repository")
	}
	if products == nil {
		return nil, errors.New("sale service: nil product repository")
	}
	if prices == nil {
		return nil, errors.New("sale service: nil price repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &SaleService{
		repo:           repo,
		pumps:          pumps,
		products:       products,
		prices:         prices,
		stationChecker: stationChecker,
		alerts:         alerts,
		publisher:      publisher,
		clock:          clock,
	}, nil
}

// CreateSaleRequest carries point-of-sale input. The opening meter is
// never client-supplied: the pump's current reading is authoritative.
type CreateSaleRequest struct {
	StationID         string
	PumpID            string
	ProductID         string
	ClosingMeter      float64
	UnitPriceOverride *float64
	CashReceived      *float64
	PaymentMethod     string
	CustomerType      string
	Notes             string
	TransactionTime   time.Time
}

// UpdateSaleRequest carries an edit to a recorded sale. Nil pointers
// leave the field untouched; meter or price changes re-run the
// computation.
type UpdateSaleRequest struct {
	OpeningMeter  *float64
	ClosingMeter  *float64
	UnitPrice     *float64
	CashReceived  *float64
	PaymentMethod *string
	CustomerType  *string
	Status        *string
	Notes         *string
}

// ListSalesRequest filters a scope-checked sale listing.
type ListSalesRequest struct {
	StationID        string
	PumpID           string
	Status           string
	From             time.Time
	To               time.Time
	IncludeCancelled bool
}

// Create records a sale and advances the pump meter as one unit.
func (s *SaleService) Create(ctx context.Context, req CreateSaleRequest) (*sales.Sale, error) {
	start := s.clock.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveSaleCreate(result, time.Since(start))
	}()

	scope, err := s.scopeFromContext(ctx)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if req.StationID == "" {
		result = metrics.ResultError
		return nil, errors.New("sale service: station_id required")
	}
	if err := s.ensureStation(ctx, scope, req.StationID); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	pump, err := s.pumps.Get(ctx, req.PumpID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if pump == nil || pump.StationID != req.StationID {
		result = metrics.ResultError
		return nil, sales.ErrMissingPump
	}

	product, err := s.resolveProduct(ctx, req.ProductID, pump.FuelType)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	unitPrice, err := s.resolvePrice(ctx, req.StationID, product.ID, req.UnitPriceOverride)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	comp, err := sales.ComputeSale(pump.CurrentMeter, req.ClosingMeter, unitPrice, req.CashReceived)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	now := s.clock.Now()
	txTime := req.TransactionTime
	if txTime.IsZero() {
		txTime = now
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = sales.PaymentCash
	}
	customerType := req.CustomerType
	if customerType == "" {
		customerType = sales.CustomerRetail
	}

	sale := &sales.Sale{
		ID:              uuid.NewString(),
		StationID:       req.StationID,
		PumpID:          pump.ID,
		PumpNumber:      pump.PumpNumber,
		ProductID:       product.ID,
		OpeningMeter:    pump.CurrentMeter,
		ClosingMeter:    req.ClosingMeter,
		UnitPrice:       unitPrice,
		LitresSold:      comp.LitresSold,
		TotalAmount:     comp.TotalAmount,
		CashReceived:    comp.CashReceived,
		Variance:        comp.Variance,
		PaymentMethod:   paymentMethod,
		CustomerType:    customerType,
		Status:          sales.StatusCompleted,
		TransactionTime: txTime,
		CreatedBy:       auth.SubjectFromContext(ctx),
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := sale.Validate(); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	if err := s.repo.CreateWithMeterAdvance(ctx, sale); err != nil {
		result = metrics.ResultError
		if errors.Is(err, sales.ErrInconsistentWrite) && s.alerts != nil {
			_ = s.alerts.RecordInconsistentWrite(ctx, sale.StationID, sale.PumpID, sale.ID,
				"sale recorded but pump meter not advanced")
		}
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, SaleRecorded{
			SaleID:      sale.ID,
			StationID:   sale.StationID,
			TotalAmount: sale.TotalAmount,
			OccurredAt:  now,
		})
	}
	return sale, nil
}

// Get fetches a sale the caller is allowed to see.
func (s *SaleService) Get(ctx context.Context, id string) (*sales.Sale, error) {
	scope, err := s.scopeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, sales.ErrNotFound
	}
	if err := s.ensureStation(ctx, scope, sale.StationID); err != nil {
		return nil, err
	}
	return sale, nil
}

// Update edits a mutable sale and recomputes derived fields.
func (s *SaleService) Update(ctx context.Context, id string, req UpdateSaleRequest) (*sales.Sale, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sale.Editable() {
		return nil, sales.ErrSaleCancelled
	}

	if req.OpeningMeter != nil {
		sale.OpeningMeter = *req.OpeningMeter
	}
	if req.ClosingMeter != nil {
		sale.ClosingMeter = *req.ClosingMeter
	}
	if req.UnitPrice != nil {
		sale.UnitPrice = *req.UnitPrice
	}
	if req.PaymentMethod != nil {
		sale.PaymentMethod = *req.PaymentMethod
	}
	if req.CustomerType != nil {
		sale.CustomerType = *req.CustomerType
	}
	if req.Status != nil {
		sale.Status = *req.Status
	}
	if req.Notes != nil {
		sale.Notes = *req.Notes
	}

	cash := req.CashReceived
	if cash == nil {
		cash = &sale.CashReceived
	}
	comp, err := sales.ComputeSale(sale.OpeningMeter, sale.ClosingMeter, sale.UnitPrice, cash)
	if err != nil {
		return nil, err
	}
	sale.LitresSold = comp.LitresSold
	sale.TotalAmount = comp.TotalAmount
	sale.CashReceived = comp.CashReceived
	sale.Variance = comp.Variance
	sale.UpdatedAt = s.clock.Now()

	if err := sale.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Cancel soft-deletes a sale.
func (s *SaleService) Cancel(ctx context.Context, id string) (*sales.Sale, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sale.Cancel(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Void voids a sale irreversibly.
func (s *SaleService) Void(ctx context.Context, id string) (*sales.Sale, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sale.Void(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// List returns sales visible to the caller. Requesting a station outside
// the caller's scope fails with ErrForbidden rather than returning an
// empty set.
func (s *SaleService) List(ctx context.Context, req ListSalesRequest) ([]sales.Sale, error) {
	scope, err := s.scopeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := sales.Query{
		PumpID:           req.PumpID,
		Status:           req.Status,
		From:             req.From,
		To:               req.To,
		IncludeCancelled: req.IncludeCancelled,
	}
	if req.StationID != "" {
		if err := s.ensureStation(ctx, scope, req.StationID); err != nil {
			return nil, err
		}
		query.StationID = req.StationID
	} else {
		query.StationID = scope.StationID
		query.DealerID = scope.DealerID
		query.OMCID = scope.OMCID
	}
	return s.repo.List(ctx, query)
}

func (s *SaleService) scopeFromContext(ctx context.Context) (auth.Scope, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Scope{}, auth.ErrUnauthorized
	}
	return auth.ScopeFor(identity.Role, identity)
}

func (s *SaleService) ensureStation(ctx context.Context, scope auth.Scope, stationID string) error {
	if s.stationChecker == nil {
		return nil
	}
	return s.stationChecker.EnsureStationInScope(ctx, scope, stationID)
}

func (s *SaleService) resolveProduct(ctx context.Context, productID, fuelType string) (*masterdata.Product, error) {
	if productID != "" {
		product, err := s.products.Get(ctx, productID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, sales.ErrMissingProduct
		}
		return product, nil
	}
	product, err := s.products.GetByFuelType(ctx, fuelType)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, sales.ErrMissingProduct
	}
	return product, nil
}

func (s *SaleService) resolvePrice(ctx context.Context, stationID, productID string, override *float64) (float64, error) {
	if override != nil {
		if *override <= 0 {
			return 0, sales.ErrInvalidPrice
		}
		return *override, nil
	}
	price, err := s.prices.GetStationPrice(ctx, stationID, productID)
	if err != nil {
		return 0, err
	}
	if price == nil {
		return 0, sales.ErrMissingProduct
	}
	return price.UnitPrice, nil
}

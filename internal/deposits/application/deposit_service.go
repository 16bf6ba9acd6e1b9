package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fuelretail-cloud/internal/auth"
	deposits "fuelretail-cloud/internal/deposits/domain"
	"fuelretail-cloud/internal/observability/metrics"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CreateDepositRequest carries caller-supplied deposit fields. Status
// always starts pending regardless of input.
type CreateDepositRequest struct {
	StationID     string
	DepositDate   time.Time
	Amount        float64
	BankName      string
	AccountNumber string
	SlipReference string
	Notes         string
}

// UpdateDepositRequest edits a pending deposit. Nil fields are left
// untouched.
type UpdateDepositRequest struct {
	DepositDate   *time.Time
	Amount        *float64
	BankName      *string
	AccountNumber *string
	SlipReference *string
	Notes         *string
}

// ListDepositsRequest filters deposit listings within scope.
type ListDepositsRequest struct {
	StationID string
	Status    string
	From      time.Time
	To        time.Time
}

// DepositService drives the deposit reconciliation lifecycle.
type DepositService struct {
	repo           deposits.Repository
	stationChecker auth.StationAccessChecker
	clock          Clock
}

// NewDepositService constructs the service.
func NewDepositService(repo deposits.Repository, stationChecker auth.StationAccessChecker, clock Clock) (*DepositService, error) {
	if repo == nil {
		return nil, errors.New("deposit service: nil repository")
	}
	if stationChecker == nil {
		return nil, errors.New("deposit service: nil station checker")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &DepositService{repo: repo, stationChecker: stationChecker, clock: clock}, nil
}

// Create records a new deposit in pending status.
func (s *DepositService) Create(ctx context.Context, req CreateDepositRequest) (*deposits.Deposit, error) {
	start := s.clock.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveDepositTransition("create", result, time.Since(start))
	}()

	identity, scope, err := s.callerScope(ctx)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if req.StationID == "" {
		result = metrics.ResultError
		return nil, errors.New("deposit: station_id is required")
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, req.StationID); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	now := s.clock.Now()
	depositDate := req.DepositDate
	if depositDate.IsZero() {
		depositDate = now
	}
	deposit := &deposits.Deposit{
		ID:            uuid.NewString(),
		StationID:     req.StationID,
		DepositDate:   depositDate,
		Amount:        req.Amount,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		SlipReference: req.SlipReference,
		Status:        deposits.StatusPending,
		DepositedBy:   identity.Subject,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := deposit.Validate(); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := s.repo.Create(ctx, deposit); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return deposit, nil
}

// Get fetches a deposit the caller is allowed to see.
func (s *DepositService) Get(ctx context.Context, id string) (*deposits.Deposit, error) {
	_, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	deposit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deposit == nil {
		if scope.Unrestricted {
			return nil, deposits.ErrNotFound
		}
		return nil, auth.ErrForbidden
	}
	if err := s.stationChecker.EnsureStationInScope(ctx, scope, deposit.StationID); err != nil {
		return nil, err
	}
	return deposit, nil
}

// Update edits a pending deposit. Confirmed and reconciled deposits
// are frozen for everyone except admins.
func (s *DepositService) Update(ctx context.Context, id string, req UpdateDepositRequest) (*deposits.Deposit, error) {
	identity, _, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	deposit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deposit.Editable() && !auth.RoleAtLeast(identity.Role, auth.RoleAdmin) {
		return nil, deposits.ErrNotEditable
	}

	if req.DepositDate != nil {
		deposit.DepositDate = *req.DepositDate
	}
	if req.Amount != nil {
		deposit.Amount = *req.Amount
	}
	if req.BankName != nil {
		deposit.BankName = *req.BankName
	}
	if req.AccountNumber != nil {
		deposit.AccountNumber = *req.AccountNumber
	}
	if req.SlipReference != nil {
		deposit.SlipReference = *req.SlipReference
	}
	if req.Notes != nil {
		deposit.Notes = *req.Notes
	}
	deposit.UpdatedAt = s.clock.Now()

	if err := deposit.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, deposit); err != nil {
		return nil, err
	}
	return deposit, nil
}

// Delete removes a deposit and returns the removed record so the
// caller can audit it. Non-pending deposits need admin.
func (s *DepositService) Delete(ctx context.Context, id string) (*deposits.Deposit, error) {
	identity, _, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	deposit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deposit.Editable() && !auth.RoleAtLeast(identity.Role, auth.RoleAdmin) {
		return nil, deposits.ErrNotEditable
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return deposit, nil
}

// Confirm moves a pending deposit to confirmed. Station managers and
// up may transition; attendants only record deposits.
func (s *DepositService) Confirm(ctx context.Context, id string) (*deposits.Deposit, error) {
	return s.transition(ctx, id, deposits.StatusConfirmed, auth.RoleStationManager)
}

// Reconcile moves a pending or confirmed deposit to reconciled,
// stamping the reconciliation date.
func (s *DepositService) Reconcile(ctx context.Context, id string) (*deposits.Deposit, error) {
	return s.transition(ctx, id, deposits.StatusReconciled, auth.RoleStationManager)
}

func (s *DepositService) transition(ctx context.Context, id, to string, minRole auth.Role) (*deposits.Deposit, error) {
	start := s.clock.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveDepositTransition(to, result, time.Since(start))
	}()

	identity, _, err := s.callerScope(ctx)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if !auth.RoleAtLeast(identity.Role, minRole) {
		result = metrics.ResultError
		return nil, auth.ErrForbidden
	}
	deposit, err := s.Get(ctx, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	expected := deposit.Status
	if err := deposit.Transition(to, identity.Subject, s.clock.Now()); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := s.repo.TransitionStatus(ctx, deposit, expected); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return deposit, nil
}

// List returns deposits within the caller's scope.
func (s *DepositService) List(ctx context.Context, req ListDepositsRequest) ([]deposits.Deposit, error) {
	_, scope, err := s.callerScope(ctx)
	if err != nil {
		return nil, err
	}
	query := deposits.Query{Status: req.Status, From: req.From, To: req.To}
	if req.StationID != "" {
		if err := s.stationChecker.EnsureStationInScope(ctx, scope, req.StationID); err != nil {
			return nil, err
		}
		query.StationID = req.StationID
	} else if !scope.Unrestricted {
		query.StationID = scope.StationID
		query.DealerID = scope.DealerID
		query.OMCID = scope.OMCID
	}
	return s.repo.List(ctx, query)
}

func (s *DepositService) callerScope(ctx context.Context) (auth.Identity, auth.Scope, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Identity{}, auth.Scope{}, auth.ErrUnauthorized
	}
	scope, err := auth.ScopeFor(identity.Role, identity)
	if err != nil {
		return auth.Identity{}, auth.Scope{}, err
	}
	return identity, scope, nil
}

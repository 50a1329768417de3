package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/pkg/logging"
)

var serviceTracer = otel.Tracer("bookline.internal.appointment.service")

// Postgres error codes raised by the staff/spot exclusion constraints and
// unique indexes. Either one means we lost a race for the slot.
const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

type catalogReader interface {
	GetService(ctx context.Context, orgID, id string) (*catalog.Service, error)
}

// Service validates and commits appointment mutations. Every write path
// goes through the conflict pre-check and is additionally guarded by the storage
// exclusion constraint, so a losing racer gets ConflictError, never a
// double-booked row.
type Service struct {
	repo     *Repository
	resolver *Resolver
	catalog  catalogReader
	logger   *logging.Logger
}

// NewService constructs the appointment mutation service.
func NewService(repo *Repository, resolver *Resolver, cat catalogReader, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointment: repository required")
	}
	if resolver == nil {
		panic("appointment: resolver required")
	}
	if cat == nil {
		panic("appointment: catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, resolver: resolver, catalog: cat, logger: logger}
}

// WithTx returns a service whose reads and writes run inside the
// transaction, so appointment mutations commit atomically with the dedup
// record and flow state.
func (s *Service) WithTx(tx pgx.Tx) *Service {
	repo := s.repo.WithTx(tx)
	return &Service{repo: repo, resolver: NewResolver(repo), catalog: s.catalog, logger: s.logger}
}

// CreateRequest describes a new booking.
type CreateRequest struct {
	OrgID      string
	CustomerID string
	ServiceID  string
	StaffID    *string
	SpotID     *string
	Start      time.Time
	Confirmed  bool
}

// Create books a new appointment.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := serviceTracer.Start(ctx, "appointment.create")
	defer span.End()
	span.SetAttributes(attribute.String("bookline.org_id", req.OrgID))

	if req.CustomerID == "" {
		return nil, &ValidationError{Reason: "customer required"}
	}
	svc, err := s.catalog.GetService(ctx, req.OrgID, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &ValidationError{Reason: "unknown service"}
		}
		span.RecordError(err)
		return nil, err
	}
	if svc.DurationMinutes <= 0 {
		return nil, &ValidationError{Reason: "service has no duration"}
	}
	end := req.Start.Add(svc.Duration())

	if err := s.guardConflicts(ctx, ConflictQuery{
		OrgID:   req.OrgID,
		StaffID: req.StaffID,
		SpotID:  req.SpotID,
		Start:   req.Start,
		End:     end,
	}); err != nil {
		return nil, err
	}

	status := StatusPending
	if req.Confirmed {
		status = StatusConfirmed
	}
	appt := &Appointment{
		ID:         uuid.NewString(),
		OrgID:      req.OrgID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		SpotID:     req.SpotID,
		Start:      req.Start,
		End:        end,
		Status:     status,
	}
	if err := s.repo.Insert(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, mapIntegrityError(err)
	}
	s.logger.Info("appointment created", "org_id", req.OrgID, "appointment_id", appt.ID, "start", appt.Start)
	return appt, nil
}

// Reschedule moves an existing appointment, ignoring its own interval when
// checking conflicts.
func (s *Service) Reschedule(ctx context.Context, orgID, id string, staffID, spotID *string, newStart time.Time) (*Appointment, error) {
	ctx, span := serviceTracer.Start(ctx, "appointment.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("bookline.appointment_id", id))

	existing, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.Terminal() {
		return nil, &ValidationError{Reason: "appointment already " + string(existing.Status)}
	}
	if staffID == nil {
		staffID = existing.StaffID
	}
	if spotID == nil {
		spotID = existing.SpotID
	}
	newEnd := newStart.Add(existing.End.Sub(existing.Start))

	if err := s.guardConflicts(ctx, ConflictQuery{
		OrgID:     orgID,
		StaffID:   staffID,
		SpotID:    spotID,
		Start:     newStart,
		End:       newEnd,
		ExcludeID: id,
	}); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateTimes(ctx, orgID, id, staffID, spotID, newStart, newEnd)
	if err != nil {
		span.RecordError(err)
		return nil, mapIntegrityError(err)
	}
	s.logger.Info("appointment rescheduled", "org_id", orgID, "appointment_id", id, "start", newStart)
	return updated, nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, orgID, id string) (*Appointment, error) {
	return s.transition(ctx, orgID, id, StatusConfirmed)
}

// Cancel releases the slot.
func (s *Service) Cancel(ctx context.Context, orgID, id string) (*Appointment, error) {
	return s.transition(ctx, orgID, id, StatusCancelled)
}

// Complete marks the visit done, making it eligible for a rating flow.
func (s *Service) Complete(ctx context.Context, orgID, id string) (*Appointment, error) {
	return s.transition(ctx, orgID, id, StatusCompleted)
}

// Rate records a 1-5 rating with optional feedback on a completed visit.
func (s *Service) Rate(ctx context.Context, orgID, id string, rating int, feedback *string) error {
	if rating < 1 || rating > 5 {
		return &ValidationError{Reason: "rating must be between 1 and 5"}
	}
	return s.repo.SetRating(ctx, orgID, id, rating, feedback)
}

// ListUpcomingForCustomer returns the customer's pending and confirmed
// appointments ending after now.
func (s *Service) ListUpcomingForCustomer(ctx context.Context, orgID, customerID string, now time.Time) ([]Appointment, error) {
	return s.repo.ListUpcomingForCustomer(ctx, orgID, customerID, now)
}

// ListForStaffDay returns a staff member's blocking appointments for one day.
func (s *Service) ListForStaffDay(ctx context.Context, staffID string, dayStart, dayEnd time.Time) ([]Appointment, error) {
	return s.repo.ListForStaffDay(ctx, staffID, dayStart, dayEnd)
}

// Get loads one appointment scoped to the org.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, orgID, id)
}

func (s *Service) transition(ctx context.Context, orgID, id string, to Status) (*Appointment, error) {
	ctx, span := serviceTracer.Start(ctx, "appointment.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.appointment_id", id),
		attribute.String("bookline.status", string(to)),
	)

	existing, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.Terminal() {
		return nil, &ValidationError{Reason: "appointment already " + string(existing.Status)}
	}
	updated, err := s.repo.UpdateStatus(ctx, orgID, id, to)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment status changed", "org_id", orgID, "appointment_id", id, "status", to)
	return updated, nil
}

func (s *Service) guardConflicts(ctx context.Context, q ConflictQuery) error {
	conflicts, err := s.resolver.FindConflicts(ctx, q)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// mapIntegrityError folds constraint violations raised on commit back into
// ConflictError, so a race lost after a clean pre-check reads the same as a
// conflict caught up front.
func mapIntegrityError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation {
			return &ConflictError{}
		}
	}
	return err
}

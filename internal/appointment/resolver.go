package appointment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var resolverTracer = otel.Tracer("bookline.internal.appointment.resolver")

// ConflictQuery describes a proposed interval to check against existing
// bookings. At least one of StaffID/SpotID must be set.
type ConflictQuery struct {
	OrgID     string
	StaffID   *string
	SpotID    *string
	Start     time.Time
	End       time.Time
	ExcludeID string
}

type conflictStore interface {
	FindConflicts(ctx context.Context, orgID string, staffID, spotID *string, start, end time.Time, excludeID string) ([]Appointment, error)
}

// Resolver answers "does this interval collide" for both the availability
// engine and direct appointment mutation. An empty result means the slot is
// free at check time; the storage exclusion constraint remains the
// authoritative guard under concurrency.
type Resolver struct {
	store conflictStore
}

// NewResolver constructs a resolver over the appointment repository.
func NewResolver(store conflictStore) *Resolver {
	if store == nil {
		panic("appointment: conflict store required")
	}
	return &Resolver{store: store}
}

// FindConflicts returns every blocking appointment overlapping the query.
func (r *Resolver) FindConflicts(ctx context.Context, q ConflictQuery) ([]Appointment, error) {
	ctx, span := resolverTracer.Start(ctx, "appointment.find_conflicts")
	defer span.End()
	span.SetAttributes(attribute.String("bookline.org_id", q.OrgID))

	if q.StaffID == nil && q.SpotID == nil {
		return nil, nil
	}
	if !q.End.After(q.Start) {
		return nil, &ValidationError{Reason: "start must be before end"}
	}
	conflicts, err := r.store.FindConflicts(ctx, q.OrgID, q.StaffID, q.SpotID, q.Start, q.End, q.ExcludeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return conflicts, nil
}

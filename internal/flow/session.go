package flow

import (
	"fmt"
	"time"
)

// FlowType identifies which multi-turn business process a session tracks.
type FlowType string

const (
	FlowBooking FlowType = "booking"
	FlowModify  FlowType = "modify"
	FlowCancel  FlowType = "cancel"
	FlowRating  FlowType = "rating"
	FlowInquiry FlowType = "inquiry"
)

// ParseFlowType converts a storage string into a FlowType.
func ParseFlowType(raw string) (FlowType, error) {
	switch FlowType(raw) {
	case FlowBooking, FlowModify, FlowCancel, FlowRating, FlowInquiry:
		return FlowType(raw), nil
	default:
		return "", fmt.Errorf("flow: unknown flow type %q", raw)
	}
}

// States, grouped by flow type. Stored as strings; transition sites switch
// exhaustively over the closed set.
const (
	StateInitiated                 = "initiated"
	StateCollectingService         = "collecting_service"
	StateCollectingDatetime        = "collecting_datetime"
	StateCollectingStaffPreference = "collecting_staff_preference"
	StateCollectingPersonalInfo    = "collecting_personal_info"
	StateConfirmingSummary         = "confirming_summary"
	StateConfirmed                 = "confirmed"

	StateIdentifyingBooking    = "identifying_booking"
	StateSelectingModification = "selecting_modification"
	StateCollectingNewDetails  = "collecting_new_details"

	StateConfirmingCancellation = "confirming_cancellation"
	StateCancelled              = "cancelled"

	StatePrompted           = "prompted"
	StateCollectingRating   = "collecting_rating"
	StateCollectingFeedback = "collecting_feedback"
	StateSubmitted          = "submitted"

	StateInquiryAnswered = "inquiry_answered"

	StateAbandoned = "abandoned"
)

// Terminal reports whether a state ends its flow. Abandoned is terminal for
// matching purposes but resumable.
func Terminal(state string) bool {
	switch state {
	case StateConfirmed, StateCancelled, StateSubmitted, StateInquiryAnswered, StateAbandoned:
		return true
	default:
		return false
	}
}

// InitialState returns the state a fresh session of the flow type starts in.
func InitialState(ft FlowType) string {
	switch ft {
	case FlowRating:
		return StatePrompted
	case FlowInquiry:
		return StateInquiryAnswered
	default:
		return StateInitiated
	}
}

// dataKeyLastActiveState snapshots the pre-abandonment state so resumption
// can restore exactly where the customer left off.
const dataKeyLastActiveState = "last_active_state"

// Session is the shape shared by every session-like entity the abandonment
// algorithm operates on.
type Session interface {
	State() string
	SetState(state string)
	IsActive() bool
	SetActive(active bool)
	LastMessageAt() time.Time
	Touch(at time.Time)
	Data() map[string]any
}

// FlowSession is the stateful record of one multi-turn process within a
// conversation. At most one active session exists per conversation,
// enforced by a partial unique index.
type FlowSession struct {
	ID             string         `json:"id"`
	OrgID          string         `json:"org_id"`
	ConversationID string         `json:"conversation_id"`
	Type           FlowType       `json:"flow_type"`
	Current        string         `json:"state"`
	Collected      map[string]any `json:"collected_data"`
	Active         bool           `json:"is_active"`
	LastMsgAt      time.Time      `json:"last_message_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

var _ Session = (*FlowSession)(nil)

func (s *FlowSession) State() string            { return s.Current }
func (s *FlowSession) SetState(state string)    { s.Current = state }
func (s *FlowSession) IsActive() bool           { return s.Active }
func (s *FlowSession) SetActive(active bool)    { s.Active = active }
func (s *FlowSession) LastMessageAt() time.Time { return s.LastMsgAt }
func (s *FlowSession) Touch(at time.Time)       { s.LastMsgAt = at }

func (s *FlowSession) Data() map[string]any {
	if s.Collected == nil {
		s.Collected = make(map[string]any)
	}
	return s.Collected
}

package flow

import (
	"errors"
	"fmt"
)

// Outcome is the structured result of a tool call executed on behalf of the
// conversational agent. Outcomes, not free text, drive state transitions.
type Outcome string

const (
	OutcomeServiceSelected       Outcome = "service_selected"
	OutcomeAvailabilityChecked   Outcome = "availability_checked"
	OutcomeStaffPreferenceSet    Outcome = "staff_preference_set"
	OutcomePersonalInfoCollected Outcome = "personal_info_collected"
	OutcomeSummaryPresented      Outcome = "summary_presented"
	OutcomeBooked                Outcome = "booked"

	OutcomeBookingIdentified    Outcome = "booking_identified"
	OutcomeModificationSelected Outcome = "modification_selected"
	OutcomeNewDetailsCollected  Outcome = "new_details_collected"
	OutcomeModified             Outcome = "modified"

	OutcomeCancelConfirmed Outcome = "cancel_confirmed"
	OutcomeCancelled       Outcome = "cancelled"

	OutcomeRatingCollected   Outcome = "rating_collected"
	OutcomeFeedbackCollected Outcome = "feedback_collected"
	OutcomeRatingSubmitted   Outcome = "rating_submitted"

	OutcomeInquiryAnswered Outcome = "inquiry_answered"
)

// ErrInvalidTransition reports an outcome that does not advance the
// session's flow from its current state. Callers treat it as a no-op signal,
// not a failure of the request.
var ErrInvalidTransition = errors.New("flow: outcome does not apply to current state")

// FlowForOutcome returns the flow type an outcome belongs to, used when an
// outcome arrives with no session open yet.
func FlowForOutcome(o Outcome) (FlowType, bool) {
	switch o {
	case OutcomeServiceSelected, OutcomeAvailabilityChecked, OutcomeStaffPreferenceSet,
		OutcomePersonalInfoCollected, OutcomeSummaryPresented, OutcomeBooked:
		return FlowBooking, true
	case OutcomeBookingIdentified, OutcomeModificationSelected, OutcomeNewDetailsCollected, OutcomeModified:
		return FlowModify, true
	case OutcomeCancelConfirmed, OutcomeCancelled:
		return FlowCancel, true
	case OutcomeRatingCollected, OutcomeFeedbackCollected, OutcomeRatingSubmitted:
		return FlowRating, true
	case OutcomeInquiryAnswered:
		return FlowInquiry, true
	default:
		return "", false
	}
}

// Transition advances the session per its flow type's state machine.
// Reaching a terminal state deactivates the session. Returns
// ErrInvalidTransition when the outcome has no edge from the current state.
func Transition(s *FlowSession, outcome Outcome) error {
	if s == nil {
		return errors.New("flow: nil session")
	}
	if Terminal(s.Current) {
		return ErrInvalidTransition
	}

	var next string
	var err error
	switch s.Type {
	case FlowBooking:
		next, err = bookingNext(s.Current, outcome)
	case FlowModify:
		next, err = modifyNext(s.Current, outcome)
	case FlowCancel:
		next, err = cancelNext(s.Current, outcome)
	case FlowRating:
		next, err = ratingNext(s.Current, outcome)
	case FlowInquiry:
		// Stateless: any inquiry outcome lands terminal immediately.
		if outcome == OutcomeInquiryAnswered {
			next = StateInquiryAnswered
		} else {
			err = ErrInvalidTransition
		}
	default:
		err = fmt.Errorf("flow: unknown flow type %q", s.Type)
	}
	if err != nil {
		return err
	}

	s.Current = next
	if Terminal(next) {
		s.Active = false
	}
	return nil
}

// bookingNext: initiated -> collecting_service -> collecting_datetime ->
// collecting_staff_preference -> collecting_personal_info ->
// confirming_summary -> confirmed. A booked outcome completes the flow from
// any non-terminal state, since the agent may collect several fields in one
// turn.
func bookingNext(state string, outcome Outcome) (string, error) {
	if outcome == OutcomeBooked {
		return StateConfirmed, nil
	}
	switch state {
	case StateInitiated:
		switch outcome {
		case OutcomeServiceSelected:
			return StateCollectingDatetime, nil
		case OutcomeAvailabilityChecked:
			return StateCollectingDatetime, nil
		}
	case StateCollectingService:
		if outcome == OutcomeServiceSelected {
			return StateCollectingDatetime, nil
		}
	case StateCollectingDatetime:
		switch outcome {
		case OutcomeAvailabilityChecked:
			return StateCollectingDatetime, nil
		case OutcomeStaffPreferenceSet:
			return StateCollectingPersonalInfo, nil
		case OutcomePersonalInfoCollected:
			return StateConfirmingSummary, nil
		}
	case StateCollectingStaffPreference:
		if outcome == OutcomeStaffPreferenceSet {
			return StateCollectingPersonalInfo, nil
		}
	case StateCollectingPersonalInfo:
		if outcome == OutcomePersonalInfoCollected {
			return StateConfirmingSummary, nil
		}
	case StateConfirmingSummary:
		if outcome == OutcomeSummaryPresented {
			return StateConfirmingSummary, nil
		}
	}
	return "", ErrInvalidTransition
}

// modifyNext: initiated -> identifying_booking -> selecting_modification ->
// collecting_new_details -> confirming_summary -> confirmed.
func modifyNext(state string, outcome Outcome) (string, error) {
	if outcome == OutcomeModified {
		return StateConfirmed, nil
	}
	switch state {
	case StateInitiated:
		if outcome == OutcomeBookingIdentified {
			return StateSelectingModification, nil
		}
	case StateIdentifyingBooking:
		if outcome == OutcomeBookingIdentified {
			return StateSelectingModification, nil
		}
	case StateSelectingModification:
		if outcome == OutcomeModificationSelected {
			return StateCollectingNewDetails, nil
		}
	case StateCollectingNewDetails:
		switch outcome {
		case OutcomeAvailabilityChecked:
			return StateCollectingNewDetails, nil
		case OutcomeNewDetailsCollected:
			return StateConfirmingSummary, nil
		}
	case StateConfirmingSummary:
		if outcome == OutcomeSummaryPresented {
			return StateConfirmingSummary, nil
		}
	}
	return "", ErrInvalidTransition
}

// cancelNext: initiated -> identifying_booking -> confirming_cancellation ->
// cancelled.
func cancelNext(state string, outcome Outcome) (string, error) {
	if outcome == OutcomeCancelled {
		return StateCancelled, nil
	}
	switch state {
	case StateInitiated, StateIdentifyingBooking:
		if outcome == OutcomeBookingIdentified || outcome == OutcomeCancelConfirmed {
			return StateConfirmingCancellation, nil
		}
	case StateConfirmingCancellation:
		if outcome == OutcomeCancelConfirmed {
			return StateConfirmingCancellation, nil
		}
	}
	return "", ErrInvalidTransition
}

// ratingNext: prompted -> collecting_rating -> collecting_feedback ->
// submitted.
func ratingNext(state string, outcome Outcome) (string, error) {
	if outcome == OutcomeRatingSubmitted {
		return StateSubmitted, nil
	}
	switch state {
	case StatePrompted:
		if outcome == OutcomeRatingCollected {
			return StateCollectingFeedback, nil
		}
	case StateCollectingRating:
		if outcome == OutcomeRatingCollected {
			return StateCollectingFeedback, nil
		}
	case StateCollectingFeedback:
		if outcome == OutcomeFeedbackCollected {
			return StateCollectingFeedback, nil
		}
	}
	return "", ErrInvalidTransition
}

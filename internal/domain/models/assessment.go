package models

import (
	"time"

	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
)

// AssessmentFlow is the server-side record of a user's wealth assessment
// session. The flow advances strictly forward through
// landing -> map_intro -> assessment -> digital_twin.
type AssessmentFlow struct {
	SessionID      string              `json:"session_id"`
	UserID         string              `json:"user_id"`
	State          constants.FlowState `json:"state"`
	QuestionIndex  int                 `json:"question_index"`
	TotalQuestions int                 `json:"total_questions"`
	StartedAt      time.Time           `json:"started_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// flowOrder defines the forward-only transition sequence.
var flowOrder = []constants.FlowState{
	constants.FlowStateLanding,
	constants.FlowStateMapIntro,
	constants.FlowStateAssessment,
	constants.FlowStateDigitalTwin,
}

func flowRank(s constants.FlowState) int {
	for i, st := range flowOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// NewAssessmentFlow creates a flow record in the landing state.
func NewAssessmentFlow(sessionID, userID string, totalQuestions int, now time.Time) *AssessmentFlow {
	return &AssessmentFlow{
		SessionID:      sessionID,
		UserID:         userID,
		State:          constants.FlowStateLanding,
		TotalQuestions: totalQuestions,
		StartedAt:      now,
		UpdatedAt:      now,
	}
}

// AdvanceTo moves the flow to the target state. Only a single forward step is
// allowed; anything else is a conflict.
func (f *AssessmentFlow) AdvanceTo(target constants.FlowState, now time.Time) error {
	cur, next := flowRank(f.State), flowRank(target)
	if next < 0 {
		return errors.ErrInvalidRequest.WithMessage("unknown flow state: %s", target)
	}
	if next != cur+1 {
		return errors.ErrConflict.WithMessage("cannot move from %s to %s", f.State, target)
	}
	f.State = target
	f.UpdatedAt = now
	return nil
}

// RecordAnswer advances the question cursor. Valid only while the flow is in
// the assessment state.
func (f *AssessmentFlow) RecordAnswer(now time.Time) error {
	if f.State != constants.FlowStateAssessment {
		return errors.ErrConflict.WithMessage("cannot answer in state %s", f.State)
	}
	if f.TotalQuestions > 0 && f.QuestionIndex >= f.TotalQuestions {
		return errors.ErrConflict.WithMessage("all %d questions already answered", f.TotalQuestions)
	}
	f.QuestionIndex++
	f.UpdatedAt = now
	return nil
}

// Complete transitions the flow into the digital twin wait state. Valid only
// from the assessment state.
func (f *AssessmentFlow) Complete(now time.Time) error {
	if f.State != constants.FlowStateAssessment {
		return errors.ErrConflict.WithMessage("cannot complete from state %s", f.State)
	}
	f.State = constants.FlowStateDigitalTwin
	f.UpdatedAt = now
	return nil
}

// Done reports whether the flow has reached its terminal state.
func (f *AssessmentFlow) Done() bool {
	return f.State == constants.FlowStateDigitalTwin
}

// Package engine implements the document routing state machine.
package engine

import (
	"errors"
	"fmt"

	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/validation"
)

// InvalidStateError reports an operation attempted in a status that does
// not permit it, including any operation on a terminal document.
type InvalidStateError struct {
	DocumentID string
	Status     models.DocumentStatus
	Op         string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s document %s in status %s", e.Op, e.DocumentID, e.Status)
}

// StageNotActiveError reports a decision aimed at a stage that is not the
// current blocking stage, or an acknowledgment on a stage not yet reached.
type StageNotActiveError struct {
	DocumentID   string
	StageOrdinal int
	Reason       string
}

func (e *StageNotActiveError) Error() string {
	return fmt.Sprintf("stage %d of document %s is not active: %s", e.StageOrdinal, e.DocumentID, e.Reason)
}

// NotAParticipantError reports an actor who has no slot in the stage.
type NotAParticipantError struct {
	DocumentID   string
	StageOrdinal int
	UserID       string
}

func (e *NotAParticipantError) Error() string {
	return fmt.Sprintf("user %s is not a participant of stage %d of document %s", e.UserID, e.StageOrdinal, e.DocumentID)
}

// AlreadyDecidedError reports a participant whose decision is already
// recorded; a repeat call never double-advances the stage.
type AlreadyDecidedError struct {
	DocumentID   string
	StageOrdinal int
	UserID       string
	Decision     models.Decision
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("user %s already decided %s on stage %d of document %s", e.UserID, e.Decision, e.StageOrdinal, e.DocumentID)
}

// RecallNotAllowedError reports a recall by a non-creator or after any
// decision, including a non-blocking acknowledgment, has been recorded.
type RecallNotAllowedError struct {
	DocumentID string
	Reason     string
}

func (e *RecallNotAllowedError) Error() string {
	return fmt.Sprintf("document %s cannot be recalled: %s", e.DocumentID, e.Reason)
}

// InvalidTemplateError reports a route template whose shape cannot be
// materialized: no stages, an unknown stage type, or a stage without
// participants. The document itself is untouched.
type InvalidTemplateError struct {
	DocumentID string
	Reason     string
}

func (e *InvalidTemplateError) Error() string {
	return fmt.Sprintf("route template for document %s is invalid: %s", e.DocumentID, e.Reason)
}

// UnknownParticipantError reports a route participant the organization
// directory does not know.
type UnknownParticipantError struct {
	TenantID string
	UserID   string
}

func (e *UnknownParticipantError) Error() string {
	return fmt.Sprintf("participant %s is unknown to tenant %s", e.UserID, e.TenantID)
}

// ValidationError carries the complete field-level error set of a failed
// submission.
type ValidationError struct {
	Errors []validation.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload validation failed with %d error(s)", len(e.Errors))
}

// ErrUnsupportedDecision rejects decision values other than approved and
// rejected; acknowledgments go through Acknowledge.
var ErrUnsupportedDecision = errors.New("unsupported decision")

func IsInvalidState(err error) bool {
	var target *InvalidStateError

	return errors.As(err, &target)
}

func IsStageNotActive(err error) bool {
	var target *StageNotActiveError

	return errors.As(err, &target)
}

func IsNotAParticipant(err error) bool {
	var target *NotAParticipantError

	return errors.As(err, &target)
}

func IsAlreadyDecided(err error) bool {
	var target *AlreadyDecidedError

	return errors.As(err, &target)
}

func IsRecallNotAllowed(err error) bool {
	var target *RecallNotAllowedError

	return errors.As(err, &target)
}

func IsInvalidTemplate(err error) bool {
	var target *InvalidTemplateError

	return errors.As(err, &target)
}

func IsUnknownParticipant(err error) bool {
	var target *UnknownParticipantError

	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError

	return errors.As(err, &target)
}

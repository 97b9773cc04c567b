// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Resource errors
	ErrInsufficientResource = errors.New("insufficient resource")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "stats", "league"
	Op      string // Operation that failed, e.g., "MarkWatched", "Claim"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Content hierarchy errors
var (
	ErrNodeNotFound  = NewDomainError("content", "Get", ErrNotFound, "content node not found")
	ErrNodeInactive  = NewDomainError("content", "Get", ErrInvalidState, "content node is inactive")
	ErrWrongNodeKind = NewDomainError("content", "Validate", ErrInvalidInput, "wrong content node kind")
)

// Progress / unlock errors
var (
	ErrProgressNotFound  = NewDomainError("progress", "Find", ErrNotFound, "progress record not found")
	ErrContentLocked     = NewDomainError("progress", "CheckUnlock", ErrInvalidState, "content is locked for this user")
	ErrVideoNotInLesson  = NewDomainError("progress", "MarkWatched", ErrInvalidInput, "video does not belong to the lesson")
	ErrProgressDuplicate = NewDomainError("progress", "Create", ErrAlreadyExists, "progress record already exists")
)

// Stats ledger errors
var (
	ErrLedgerNotFound = NewDomainError("stats", "Find", ErrNotFound, "stats ledger not found")
	ErrNoHearts       = NewDomainError("stats", "SpendHeart", ErrInsufficientResource, "user has no hearts left")
)

// Streak errors
var (
	ErrStreakNotRepairable = NewDomainError("streak", "Repair", ErrInvalidState, "streak is not in a repairable state")
)

// League errors
var (
	ErrSessionNotFound     = NewDomainError("league", "FindSession", ErrNotFound, "league session not found")
	ErrParticipantNotFound = NewDomainError("league", "FindParticipant", ErrNotFound, "league participant not found")
	ErrSessionArchived     = NewDomainError("league", "Update", ErrInvalidState, "league session is archived")
	ErrUnknownTier         = NewDomainError("league", "Validate", ErrInvalidInput, "unknown league tier")
)

// Quest errors
var (
	ErrQuestNotFound     = NewDomainError("quest", "Find", ErrNotFound, "quest not found")
	ErrQuestNotCompleted = NewDomainError("quest", "Claim", ErrInvalidState, "quest is not completed")
	ErrQuestExpired      = NewDomainError("quest", "Claim", ErrExpired, "quest has expired")
	ErrQuestClaimed      = NewDomainError("quest", "Claim", ErrAlreadyProcessed, "quest reward already claimed")
)

// Mastery errors
var (
	ErrSkillNotFound        = NewDomainError("mastery", "Find", ErrNotFound, "skill progress not found")
	ErrLegendaryNotEligible = NewDomainError("mastery", "AttemptLegendary", ErrInvalidState, "legendary challenge requirements not met")
	ErrAlreadyLegendary     = NewDomainError("mastery", "AttemptLegendary", ErrAlreadyProcessed, "skill is already legendary")
)

// Notification errors
var (
	ErrNotificationFailed = NewDomainError("notification", "Create", ErrExternalService, "failed to create notification")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a benign duplicate-key conflict.
// Legitimate concurrent first-access produces this; callers should re-fetch.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidState checks if the error is a rejected precondition.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrExpired)
}

// IsInsufficientResource checks if the error signals a depleted resource
// (no hearts). Surfaced distinctly so a client can offer a top-up flow.
func IsInsufficientResource(err error) bool {
	return errors.Is(err, ErrInsufficientResource)
}

// IsExternalService checks if the error came from a collaborator.
// These are logged and swallowed; the triggering mutation still succeeds.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}

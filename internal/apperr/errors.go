// Package apperr defines the error taxonomy shared by the service layer.
// Handlers map each class to an HTTP status; nothing below the handler layer
// renders HTTP concerns.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed field on a payload. It is
// user-correctable and names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("missing required field %q", e.Field)
}

// NewValidation reports a required field that was not supplied.
func NewValidation(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// NewValidationMsg reports a field that was supplied but malformed.
func NewValidationMsg(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ReferenceError reports that a referenced entity (asset, user) does not
// exist. Distinct from NotFoundError, which is about the primary entity of
// the operation itself.
type ReferenceError struct {
	Entity string
	ID     string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("referenced %s %q not found", e.Entity, e.ID)
}

// NewReference builds a ReferenceError for the given entity kind and id.
func NewReference(entity, id string) *ReferenceError {
	return &ReferenceError{Entity: entity, ID: id}
}

// NotFoundError reports that the primary entity of an operation is unknown.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError for the given entity kind and id.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// PermissionError reports that the acting user lacks rights for the
// operation. Rendered as a generic 403 so the message never leaks who is
// allowed.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "not authorized"
}

// NewPermission builds a PermissionError with an internal message.
func NewPermission(message string) *PermissionError {
	return &PermissionError{Message: message}
}

// InvalidStateError reports a transition attempted on a request that has
// already left pending, or a side effect that could not be applied.
type InvalidStateError struct {
	Status  string
	Message string
}

func (e *InvalidStateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request already resolved (status %q)", e.Status)
}

// NewInvalidState reports a request that is no longer pending.
func NewInvalidState(status string) *InvalidStateError {
	return &InvalidStateError{Status: status}
}

// NewInvalidStateMsg reports an aborted transition with a free-form reason,
// used when the asset-side mutation fails and the whole transition rolls back.
func NewInvalidStateMsg(message string) *InvalidStateError {
	return &InvalidStateError{Message: message}
}

// Classification helpers, used by handlers to pick a status code.

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsReference(err error) bool {
	var target *ReferenceError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

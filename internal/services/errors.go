package services

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError indicates a referenced user, property, account or
// transaction does not exist.
type NotFoundError struct {
	Resource string
	Key      any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Resource, e.Key)
}

// ValidationError indicates malformed or missing input; nothing was persisted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UnbalancedTransactionError indicates entry amounts do not sum to zero
// within tolerance. This is a caller bug, not a retryable condition.
type UnbalancedTransactionError struct {
	Sum float64
}

func (e *UnbalancedTransactionError) Error() string {
	return fmt.Sprintf("journal entries do not balance: sum = %.4f", e.Sum)
}

// InsufficientFundsError indicates a wallet balance below the requested debit
type InsufficientFundsError struct {
	Available float64
	Requested float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %.2f, requested %.2f", e.Available, e.Requested)
}

// StatusCodeForError maps domain errors onto HTTP status codes. Anything not
// in the taxonomy is a storage failure and surfaces as 500.
func StatusCodeForError(err error) int {
	var notFound *NotFoundError
	var validation *ValidationError
	var unbalanced *UnbalancedTransactionError
	var insufficient *InsufficientFundsError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &unbalanced), errors.As(err, &insufficient):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

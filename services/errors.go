package services

import (
	"errors"
	"net/http"

	"checkout-service/providers"
	"checkout-service/repository"
)

// ErrorKind names a class of failure in the checkout error taxonomy.
type ErrorKind string

const (
	KindValidation         ErrorKind = "ValidationError"
	KindDuplicateOrder     ErrorKind = "DuplicateOrder"
	KindNotFound           ErrorKind = "NotFound"
	KindForbidden          ErrorKind = "Forbidden"
	KindNotCancelable      ErrorKind = "NotCancelable"
	KindVerificationFailed ErrorKind = "VerificationFailed"
	KindInvalidTransition  ErrorKind = "InvalidTransition"
	KindConflict           ErrorKind = "Conflict"
	KindGateway            ErrorKind = "GatewayError"
	KindServer             ErrorKind = "ServerError"
	KindUnauthorized       ErrorKind = "Unauthorized"
)

var kindStatus = map[ErrorKind]int{
	KindValidation:         http.StatusBadRequest,
	KindDuplicateOrder:     http.StatusBadRequest,
	KindNotFound:           http.StatusNotFound,
	KindForbidden:          http.StatusForbidden,
	KindNotCancelable:      http.StatusBadRequest,
	KindVerificationFailed: http.StatusBadRequest,
	KindInvalidTransition:  http.StatusConflict,
	KindConflict:           http.StatusConflict,
	KindGateway:            http.StatusBadGateway,
	KindServer:             http.StatusInternalServerError,
	KindUnauthorized:       http.StatusUnauthorized,
}

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// NewServiceError builds a ServiceError whose status code follows from kind.
func NewServiceError(kind ErrorKind, message string) *ServiceError {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &ServiceError{StatusCode: status, Kind: kind, Message: message}
}

// fromStoreError maps repository and gateway sentinels onto the taxonomy.
// Anything unrecognized becomes a ServerError with a generic message.
func fromStoreError(err error) *ServiceError {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return NewServiceError(KindNotFound, "Order not found")
	case errors.Is(err, repository.ErrDuplicateOrder):
		return NewServiceError(KindDuplicateOrder, "An order with this orderId already exists")
	case errors.Is(err, repository.ErrInvalidStatus):
		return NewServiceError(KindValidation, "Invalid status value")
	case errors.Is(err, repository.ErrNotCancelable):
		return NewServiceError(KindNotCancelable, "Order cannot be cancelled once it has shipped or been closed")
	case errors.Is(err, repository.ErrInvalidTransition):
		return NewServiceError(KindInvalidTransition, "Order status cannot move to the requested value")
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return NewServiceError(KindConflict, "Order was modified concurrently, please retry")
	case errors.Is(err, providers.ErrGateway):
		return NewServiceError(KindGateway, "Payment provider is unavailable")
	default:
		return NewServiceError(KindServer, "Internal server error")
	}
}

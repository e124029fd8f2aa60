package services

import "net/http"

// ErrorKind classifies a ServiceError independently of its HTTP status.
type ErrorKind string

const (
	KindValidation             ErrorKind = "ValidationError"
	KindPaymentNotConfirmed    ErrorKind = "PaymentNotConfirmed"
	KindPaymentSetupFailed     ErrorKind = "PaymentSetupFailed"
	KindOrderPersistenceFailed ErrorKind = "OrderPersistenceFailed"
	KindOrderNotFound          ErrorKind = "OrderNotFound"
	KindDuplicateOrder         ErrorKind = "DuplicateOrder"
	KindUnauthorized           ErrorKind = "Unauthorized"
	KindNotFound               ErrorKind = "NotFound"
	KindInternal               ErrorKind = "Internal"
)

// ServiceError is a typed error with an HTTP status code. Details lists the
// individual problems of a validation failure.
type ServiceError struct {
	StatusCode int
	Message    string
	Kind       ErrorKind
	Details    []string
}

func (e *ServiceError) Error() string { return e.Message }

func validationError(details ...string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Kind:       KindValidation,
		Details:    details,
	}
}

func internalError(message string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: message, Kind: KindInternal}
}

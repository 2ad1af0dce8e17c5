package services

import "net/http"

// Error kinds, stable across responses.
const (
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindConflict     = "conflict"
	KindUnauthorized = "unauthorized"
	KindForbidden    = "forbidden"
	KindStorage      = "storage"
	KindGateway      = "gateway"
)

// ServiceError is a typed error carrying an HTTP status code and a stable
// kind for the API layer.
type ServiceError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

func validationError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Kind: KindValidation, Message: msg}
}

func notFoundError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

func conflictError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusConflict, Kind: KindConflict, Message: msg}
}

func storageError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Kind: KindStorage, Message: msg}
}

func gatewayError(statusCode int, msg string) *ServiceError {
	return &ServiceError{StatusCode: statusCode, Kind: KindGateway, Message: msg}
}

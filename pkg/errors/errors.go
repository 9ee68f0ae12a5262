package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeInvalidInput        = "INVALID_INPUT"
	CodePropertyInactive    = "PROPERTY_INACTIVE"
	CodeInvalidRange        = "INVALID_RANGE"
	CodeDateConflict        = "DATE_CONFLICT"
	CodeInsufficientPayment = "INSUFFICIENT_PAYMENT"
	CodeTransferFailed      = "PAYMENT_TRANSFER_FAILED"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource string, id uint64) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Unauthorized covers owner-only actions attempted by a caller who is not
// the recorded owner. There is no separate authentication layer, so this
// maps to 403 rather than 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func PropertyInactive(propertyID uint64) *AppError {
	return &AppError{
		Code:       CodePropertyInactive,
		Message:    "property is deactivated and cannot be booked",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"property_id": propertyID,
		},
	}
}

func InvalidRange(checkIn, checkout uint64) *AppError {
	return &AppError{
		Code:       CodeInvalidRange,
		Message:    "checkout day must be after check-in day",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"check_in": checkIn,
			"checkout": checkout,
		},
	}
}

func DateConflict(propertyID, checkIn, checkout uint64) *AppError {
	return &AppError{
		Code:       CodeDateConflict,
		Message:    "requested days overlap an existing booking",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"property_id": propertyID,
			"check_in":    checkIn,
			"checkout":    checkout,
		},
	}
}

func InsufficientPayment(paid, required uint64) *AppError {
	return &AppError{
		Code:       CodeInsufficientPayment,
		Message:    "paid amount does not match the required price",
		HTTPStatus: http.StatusPaymentRequired,
		Details: map[string]any{
			"paid":     paid,
			"required": required,
		},
	}
}

func TransferFailed(err error) *AppError {
	return &AppError{
		Code:       CodeTransferFailed,
		Message:    "owner could not receive funds",
		HTTPStatus: http.StatusPaymentRequired,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

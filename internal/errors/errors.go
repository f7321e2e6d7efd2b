package errors

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrorType represents the kind of failure
type ErrorType uint

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeNotFound
	ErrorTypeInsufficientFunds
	ErrorTypeInsufficientHoldings
	ErrorTypeConflict
	ErrorTypeInternal
	ErrorTypeUnavailable
)

// Error carries a failure kind plus enough context to build a response
type Error struct {
	Type       ErrorType
	Message    string
	Details    map[string]interface{}
	Err        error
	StatusCode int
	ErrorCode  string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the failure kind so callers can compare with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func New(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Err:        err,
		StatusCode: errorTypeToStatusCode(errType),
		ErrorCode:  errorTypeToCode(errType),
		Details:    make(map[string]interface{}),
	}
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, errType ErrorType) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Type == errType
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Common error constructors
func NewValidationError(message string, err error) *Error {
	return New(ErrorTypeValidation, message, err)
}

func NewNotFoundError(message string, err error) *Error {
	return New(ErrorTypeNotFound, message, err)
}

func NewInternalError(message string, err error) *Error {
	return New(ErrorTypeInternal, message, err)
}

// Domain-specific error constructors

func NewAccountNotFoundError(accountNumber int64) *Error {
	return New(
		ErrorTypeNotFound,
		fmt.Sprintf("account not found: %d", accountNumber),
		nil,
	).WithDetails(map[string]interface{}{
		"account_number": accountNumber,
	})
}

func NewInsufficientFundsError(accountNumber int64, cost, balance decimal.Decimal) *Error {
	return New(
		ErrorTypeInsufficientFunds,
		"insufficient funds to settle buy",
		nil,
	).WithDetails(map[string]interface{}{
		"account_number": accountNumber,
		"cost":           cost.String(),
		"balance":        balance.String(),
	})
}

func NewInsufficientHoldingsError(accountNumber int64, ticker string, requested, held int64) *Error {
	return New(
		ErrorTypeInsufficientHoldings,
		fmt.Sprintf("insufficient holdings of %s to settle sell", ticker),
		nil,
	).WithDetails(map[string]interface{}{
		"account_number": accountNumber,
		"ticker":         ticker,
		"requested":      requested,
		"held":           held,
	})
}

func NewTransactionConflictError(err error) *Error {
	return New(ErrorTypeConflict, "settlement transaction conflict", err)
}

func NewStoreUnavailableError(err error) *Error {
	return New(ErrorTypeUnavailable, "ledger store unavailable", err)
}

func NewInvestorNotFoundError(id int64) *Error {
	return New(
		ErrorTypeNotFound,
		fmt.Sprintf("investor not found: %d", id),
		nil,
	).WithDetails(map[string]interface{}{
		"investor_id": id,
	})
}

// Helper functions
func errorTypeToStatusCode(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeInsufficientFunds, ErrorTypeInsufficientHoldings, ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeInternal:
		return http.StatusInternalServerError
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorTypeToCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case ErrorTypeInsufficientHoldings:
		return "INSUFFICIENT_HOLDINGS"
	case ErrorTypeConflict:
		return "TRANSACTION_CONFLICT"
	case ErrorTypeInternal:
		return "INTERNAL_ERROR"
	case ErrorTypeUnavailable:
		return "STORE_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// ErrorResponse is the JSON envelope returned for any failed request
type ErrorResponse struct {
	Status    string                 `json:"status"`
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewErrorResponse(err *Error, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Status:    "error",
		ErrorCode: err.ErrorCode,
		Message:   err.Message,
		Details:   err.Details,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

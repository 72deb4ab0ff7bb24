package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrZeroAmount         ErrorType = "ZERO_AMOUNT"
	ErrInvalidAsset       ErrorType = "INVALID_ASSET"
	ErrAboveLimit         ErrorType = "ABOVE_LIMIT"
	ErrBankCapExceeded    ErrorType = "BANK_CAP_EXCEEDED"
	ErrInsufficientOutput ErrorType = "INSUFFICIENT_OUTPUT"
	ErrSwapFailed         ErrorType = "SWAP_FAILED"
	ErrReentrancy         ErrorType = "REENTRANCY_DETECTED"
	ErrInvalidSlippage    ErrorType = "INVALID_SLIPPAGE"
	ErrNoFund             ErrorType = "NO_FUND"
	ErrPriceFeed          ErrorType = "PRICE_FEED_ERROR"
	ErrAuthFailed         ErrorType = "AUTH_FAILED"
	ErrInvalidRequest     ErrorType = "INVALID_REQUEST"
	ErrReadOnly           ErrorType = "READ_ONLY"
	ErrInternal           ErrorType = "INTERNAL_ERROR"
	ErrNotFound           ErrorType = "NOT_FOUND"
	ErrUpstream           ErrorType = "UPSTREAM_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrZeroAmount, ErrInvalidAsset, ErrInvalidSlippage, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAboveLimit, ErrBankCapExceeded, ErrNoFund, ErrInsufficientOutput:
		return http.StatusUnprocessableEntity
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrReentrancy, ErrReadOnly:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrSwapFailed, ErrUpstream, ErrPriceFeed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrInsufficientOutput:
		return "Resubmit with a revised quote or a lower slippage tolerance."
	case ErrAboveLimit:
		return "Check the amount against the per-user cap and the withdrawal limit."
	case ErrBankCapExceeded:
		return "The vault is at global capacity; retry with a smaller amount."
	case ErrReentrancy:
		return "Another vault operation is in flight. Retry the request."
	case ErrSwapFailed:
		return "The exchange call aborted; no funds were moved. Retry later."
	case ErrAuthFailed:
		return "Check API keys."
	default:
		return ""
	}
}

package rpcapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nspcc-dev/dauction/pkg/auction"
)

// Error represents a JSON-RPC error.
type Error struct {
	Code     int64  `json:"code"`
	HTTPCode int    `json:"-"`
	Message  string `json:"message"`
	Data     string `json:"data,omitempty"`
}

// Standard JSON-RPC 2.0 error codes.
const (
	ParseErrorCode          = -32700
	InvalidRequestCode      = -32600
	MethodNotFoundCode      = -32601
	InvalidParamsCode       = -32602
	InternalServerErrorCode = -32603
)

// Node-specific error codes.
const (
	// UnauthorizedCode is returned for write methods called without a valid
	// bearer token.
	UnauthorizedCode = -32001

	// Auction error classes are mapped to consecutive codes starting with
	// this one, see NewAuctionError.
	ConfigurationErrorCode = -32010
	AuthorizationErrorCode = -32011
	CapacityErrorCode      = -32012
	TimingErrorCode        = -32013
	StateErrorCode         = -32014
	AccessErrorCode        = -32015
	ArgumentsErrorCode     = -32016
)

var (
	// ErrInvalidParams represents a generic "invalid params" error.
	ErrInvalidParams = NewInvalidParamsError("invalid params")
	// ErrUnauthorized is returned for writes without a valid token.
	ErrUnauthorized = NewError(UnauthorizedCode, http.StatusUnauthorized, "Unauthorized", "")
	// ErrWritesDisabled is returned for writes when no token is configured.
	ErrWritesDisabled = NewError(UnauthorizedCode, http.StatusForbidden, "Unauthorized", "write methods are disabled")
)

// NewError is an Error constructor that takes Error contents from its
// parameters.
func NewError(code int64, httpCode int, message string, data string) *Error {
	return &Error{
		Code:     code,
		HTTPCode: httpCode,
		Message:  message,
		Data:     data,
	}
}

// NewParseError creates a new error with code -32700.
func NewParseError(data string) *Error {
	return NewError(ParseErrorCode, http.StatusBadRequest, "Parse error", data)
}

// NewInvalidRequestError creates a new error with code -32600.
func NewInvalidRequestError(data string) *Error {
	return NewError(InvalidRequestCode, http.StatusUnprocessableEntity, "Invalid request", data)
}

// NewMethodNotFoundError creates a new error with code -32601.
func NewMethodNotFoundError(data string) *Error {
	return NewError(MethodNotFoundCode, http.StatusMethodNotAllowed, "Method not found", data)
}

// NewInvalidParamsError creates a new error with code -32602.
func NewInvalidParamsError(data string) *Error {
	return NewError(InvalidParamsCode, http.StatusUnprocessableEntity, "Invalid params", data)
}

// NewInternalServerError creates a new error with code -32603.
func NewInternalServerError(data string) *Error {
	return NewError(InternalServerErrorCode, http.StatusInternalServerError, "Internal error", data)
}

// NewAuctionError converts an error returned by the auction into a JSON-RPC
// error with the code of its class. Errors of unknown class (storage and
// collaborator failures) become internal server errors.
func NewAuctionError(err error) *Error {
	var code int64
	switch auction.Classify(err) {
	case auction.ClassConfiguration:
		code = ConfigurationErrorCode
	case auction.ClassAuthorization:
		code = AuthorizationErrorCode
	case auction.ClassCapacity:
		code = CapacityErrorCode
	case auction.ClassTiming:
		code = TimingErrorCode
	case auction.ClassState:
		code = StateErrorCode
	case auction.ClassAccess:
		code = AccessErrorCode
	case auction.ClassArguments:
		code = ArgumentsErrorCode
	default:
		return NewInternalServerError(err.Error())
	}
	return NewError(code, http.StatusUnprocessableEntity, auction.Classify(err).String()+" error", err.Error())
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is denotes whether the error matches the target one by code.
func (e *Error) Is(target error) bool {
	var clTarget *Error
	if errors.As(target, &clTarget) {
		return e.Code == clTarget.Code
	}
	return false
}

// WrapErrorWithData returns copy of the given error with the specified data.
// It does not modify the source error.
func WrapErrorWithData(e *Error, data string) *Error {
	return NewError(e.Code, e.HTTPCode, e.Message, data)
}

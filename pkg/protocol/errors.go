package protocol

import "errors"

// ErrorCode is the stable code carried by a GroupKeyErrorResponse
type ErrorCode string

// Error codes
const (
	ErrorCodeInvalidGroupKeyRequest  ErrorCode = "INVALID_GROUP_KEY_REQUEST"
	ErrorCodeInvalidGroupKeyResponse ErrorCode = "INVALID_GROUP_KEY_RESPONSE"
	ErrorCodeInvalidContentType      ErrorCode = "INVALID_CONTENT_TYPE"
	ErrorCodeUnexpected              ErrorCode = "UNEXPECTED_ERROR"
)

// FailureKind classifies why a group key request could not be served
type FailureKind uint8

// Failure kinds
const (
	KindUnexpected FailureKind = iota
	KindInvalidGroupKeyRequest
	KindInvalidGroupKeyResponse
	KindMalformedMessage
)

// Code maps the kind to its wire error code
func (k FailureKind) Code() ErrorCode {
	switch k {
	case KindInvalidGroupKeyRequest:
		return ErrorCodeInvalidGroupKeyRequest
	case KindInvalidGroupKeyResponse:
		return ErrorCodeInvalidGroupKeyResponse
	case KindMalformedMessage:
		return ErrorCodeInvalidContentType
	default:
		return ErrorCodeUnexpected
	}
}

// KeyExchangeError is a semantic failure encountered while handling key exchange messages
type KeyExchangeError struct {
	Kind    FailureKind
	Message string
	Err     error
}

// NewKeyExchangeError creates a KeyExchangeError of the given kind
func NewKeyExchangeError(kind FailureKind, message string, err error) *KeyExchangeError {
	return &KeyExchangeError{Kind: kind, Message: message, Err: err}
}

func (e *KeyExchangeError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *KeyExchangeError) Unwrap() error {
	return e.Err
}

// CodeFor returns the error code for err, UNEXPECTED_ERROR if it is not a KeyExchangeError
func CodeFor(err error) ErrorCode {
	var kerr *KeyExchangeError
	if errors.As(err, &kerr) {
		return kerr.Kind.Code()
	}
	return ErrorCodeUnexpected
}

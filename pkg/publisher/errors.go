package publisher

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrSigningRequired      = errors.New("signing required")
	ErrGroupKeyNotFound     = errors.New("group key not found")
	ErrPublicKeyNotFound    = errors.New("public key not found")
	ErrUnsigned             = errors.New("message is not signed")
	ErrSignatureMismatch    = errors.New("signature does not match publisher")
)

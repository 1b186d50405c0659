// internal/app/ledger/errors.go
package ledger

import (
	"errors"
)

// Kind groups failures by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindAuthorization
	KindInsufficient
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindInsufficient:
		return "insufficient_resource"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a recoverable domain failure. Two Errors match under errors.Is
// when their codes are equal, so callers compare against the sentinels
// below even when a message was attached.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// Is matches on Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of e carrying msg.
func (e *Error) With(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func newErr(k Kind, code string) *Error {
	return &Error{Kind: k, Code: code}
}

var (
	ErrTargetNotFound   = newErr(KindNotFound, "target_not_found")
	ErrHomelessNotFound = newErr(KindNotFound, "homeless_not_found")
	ErrProviderNotFound = newErr(KindNotFound, "provider_not_found")
	ErrEventNotFound    = newErr(KindNotFound, "event_not_found")

	ErrInvalidAmount           = newErr(KindValidation, "invalid_amount")
	ErrInvalidCreditType       = newErr(KindValidation, "invalid_credit_type")
	ErrInvalidTxnType          = newErr(KindValidation, "invalid_transaction_type")
	ErrRoleNotEligible         = newErr(KindValidation, "role_not_eligible")
	ErrUnsupportedProviderType = newErr(KindValidation, "unsupported_provider_type")

	ErrUnauthorizedActor = newErr(KindAuthorization, "unauthorized_actor")

	ErrInsufficientCredits  = newErr(KindInsufficient, "insufficient_credits")
	ErrNoPositionsAvailable = newErr(KindInsufficient, "no_positions_available")
	ErrQuotaExceeded        = newErr(KindInsufficient, "quota_exceeded")

	ErrAlreadyAssigned  = newErr(KindConflict, "already_assigned")
	ErrNotAssigned      = newErr(KindConflict, "not_assigned")
	ErrAlreadyCompleted = newErr(KindConflict, "already_completed")
	ErrConflict         = newErr(KindConflict, "conflict")
)

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal for anything else (store and network failures).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

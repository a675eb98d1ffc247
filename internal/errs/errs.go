package errs

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies every failure the core can produce. Callers match on the
// kind instead of concrete error types.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindCurrencyNotFound
	KindWalletNotFound
	KindInsufficientFunds
	KindRateUnavailable
	KindAllSourcesUnavailable
	KindSourceUnavailable
	KindUserNotFound
	KindUserExists
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCurrencyNotFound:
		return "currency_not_found"
	case KindWalletNotFound:
		return "wallet_not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindRateUnavailable:
		return "rate_unavailable"
	case KindAllSourcesUnavailable:
		return "all_sources_unavailable"
	case KindSourceUnavailable:
		return "source_unavailable"
	case KindUserNotFound:
		return "user_not_found"
	case KindUserExists:
		return "user_exists"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// Error carries a kind plus the structured payload the caller needs for
// display. Unused fields stay zero.
type Error struct {
	Kind      Kind
	Code      string
	From      string
	To        string
	Available decimal.Decimal
	Required  decimal.Decimal
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCurrencyNotFound:
		return fmt.Sprintf("unknown currency %q", e.Code)
	case KindWalletNotFound:
		return fmt.Sprintf("no wallet for currency %q", e.Code)
	case KindInsufficientFunds:
		return fmt.Sprintf("insufficient funds: available %s %s, required %s %s",
			e.Available.String(), e.Code, e.Required.String(), e.Code)
	case KindRateUnavailable:
		return fmt.Sprintf("no rate available for %s to %s", e.From, e.To)
	case KindAllSourcesUnavailable:
		return "all rate sources unavailable"
	case KindSourceUnavailable:
		return fmt.Sprintf("rate source unavailable: %s", e.Reason)
	case KindUserNotFound:
		return "user not found"
	case KindUserExists:
		return "username already taken"
	case KindInvalidCredentials:
		return "invalid credentials"
	default:
		if e.Reason != "" {
			return e.Reason
		}
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindUnknown when err is not an
// *errs.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

func CurrencyNotFound(code string) *Error {
	return &Error{Kind: KindCurrencyNotFound, Code: code}
}

func WalletNotFound(code string) *Error {
	return &Error{Kind: KindWalletNotFound, Code: code}
}

func InsufficientFunds(available, required decimal.Decimal, code string) *Error {
	return &Error{Kind: KindInsufficientFunds, Available: available, Required: required, Code: code}
}

func RateUnavailable(from, to string) *Error {
	return &Error{Kind: KindRateUnavailable, From: from, To: to}
}

func AllSourcesUnavailable() *Error {
	return &Error{Kind: KindAllSourcesUnavailable}
}

func SourceUnavailable(reason string, err error) *Error {
	return &Error{Kind: KindSourceUnavailable, Reason: reason, Err: err}
}

func UserNotFound() *Error {
	return &Error{Kind: KindUserNotFound}
}

func UserExists() *Error {
	return &Error{Kind: KindUserExists}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials}
}

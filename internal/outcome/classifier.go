// Package outcome classifies wallet and chain failures into a fixed set of
// kinds and chooses the notice shown to the user.
package outcome

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Kind string

const (
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindGasEstimationFailed Kind = "gas_estimation_failed"
	KindContractAborted     Kind = "contract_aborted"
	KindTypeMismatch        Kind = "type_mismatch"
	KindUserCancelled       Kind = "user_cancelled"
	KindUnknown             Kind = "unknown"
)

// Error is a classified failure. AbortCode is set for contract aborts when
// the code could be read from the message.
type Error struct {
	Kind      Kind
	AbortCode *uint64
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: KindUserCancelled}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrGasEstimation     = &Error{Kind: KindGasEstimationFailed}
	ErrContractAborted   = &Error{Kind: KindContractAborted}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
	ErrUserCancelled     = &Error{Kind: KindUserCancelled}
)

// rejection is implemented by wallet errors that know whether the user
// declined the request.
type rejection interface {
	UserRejected() bool
}

// substring rules in priority order; the first match wins.
var rules = []struct {
	needle string
	kind   Kind
}{
	{"insufficient", KindInsufficientFunds},
	{"gas", KindGasEstimationFailed},
	{"moveabort", KindContractAborted},
	{"typemismatch", KindTypeMismatch},
	{"user rejected", KindUserCancelled},
}

var abortCodePattern = regexp.MustCompile(`(?i)MoveAbort\(.*?,\s*(\d+)\)`)

// Translate is the boundary between untyped upstream errors and Kind.
// Structured errors pass through; anything else is matched by substring.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var rej rejection
	if errors.As(err, &rej) && rej.UserRejected() {
		return &Error{Kind: KindUserCancelled, Message: err.Error(), Err: err}
	}

	return Classify(err.Error(), err)
}

// Classify maps a raw message to a kind by case-insensitive substring match.
func Classify(msg string, cause error) *Error {
	lower := strings.ToLower(msg)
	for _, r := range rules {
		if !strings.Contains(lower, r.needle) {
			continue
		}
		out := &Error{Kind: r.kind, Message: msg, Err: cause}
		if r.kind == KindContractAborted {
			out.AbortCode = abortCode(msg)
		}
		return out
	}
	return &Error{Kind: KindUnknown, Message: msg, Err: cause}
}

func abortCode(msg string) *uint64 {
	m := abortCodePattern.FindStringSubmatch(msg)
	if m == nil {
		return nil
	}
	code, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &code
}

package outcome

import "maps"

// Messages maps each kind to the notice shown for it.
type Messages map[Kind]string

// DefaultMessages is the copy used when an operation overrides nothing.
var DefaultMessages = Messages{
	KindInsufficientFunds:   "Insufficient balance for transaction.",
	KindGasEstimationFailed: "Gas estimation failed. Please try again.",
	KindContractAborted:     "Contract execution failed. Please check your input and try again.",
	KindTypeMismatch:        "Transaction arguments did not match the contract. Please check your input and try again.",
	KindUserCancelled:       "Transaction was cancelled in the wallet.",
	KindUnknown:             "Transaction failed. Please try again.",
}

// With returns a copy of m with overrides applied.
func (m Messages) With(overrides Messages) Messages {
	out := maps.Clone(m)
	if out == nil {
		out = Messages{}
	}
	maps.Copy(out, overrides)
	return out
}

// Notice returns the message for e, falling back to DefaultMessages and
// then to the unknown copy.
func (m Messages) Notice(e *Error) string {
	if e == nil {
		return ""
	}
	if msg, ok := m[e.Kind]; ok {
		return msg
	}
	if msg, ok := DefaultMessages[e.Kind]; ok {
		return msg
	}
	return DefaultMessages[KindUnknown]
}

// Notice classifies err and returns its kind with the matching message.
func Notice(err error, msgs Messages) (*Error, string) {
	e := Translate(err)
	if msgs == nil {
		msgs = DefaultMessages
	}
	return e, msgs.Notice(e)
}

// Failure pairs a classified error with the notice chosen for it. Its
// Error method returns the notice.
type Failure struct {
	Cause  *Error
	Notice string
}

func NewFailure(err error, msgs Messages) *Failure {
	cause, notice := Notice(err, msgs)
	return &Failure{Cause: cause, Notice: notice}
}

func (f *Failure) Error() string {
	return f.Notice
}

func (f *Failure) Unwrap() error {
	if f.Cause == nil {
		return nil
	}
	return f.Cause
}

// Kind returns the classified kind.
func (f *Failure) Kind() Kind {
	if f.Cause == nil {
		return KindUnknown
	}
	return f.Cause.Kind
}

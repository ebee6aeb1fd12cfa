// Package remittance sends SUI from the connected wallet to another address
// and keeps the session's balance current.
package remittance

import (
	"strings"
	"sync"
	"time"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
)

const (
	MsgRecipientRequired = "Recipient address is required"
	MsgInvalidAddress    = "Please enter a valid Sui address"
	MsgAmountRequired    = "Amount is required"
	MsgInvalidAmount     = "Please enter a valid amount"
	MsgInsufficient      = "Insufficient balance. You have %s SUI"
	MsgSendFailed        = "Error sending remittance. Please try again."
	MsgSent              = "Remittance sent successfully!"
)

// SendRequest is the remittance form as the user filled it in. Amount is a
// decimal SUI amount.
type SendRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// FieldError is a validation failure on one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed. It is returned before
// anything is sent to the wallet.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Field returns the message for field, or "".
func (e *ValidationError) Field(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Draft is the form kept in the session between attempts. It is cleared
// after a successful send.
type Draft struct {
	mu  sync.Mutex
	req SendRequest
}

const draftKey = "remittance.draft"

func draftOf(sess *session.Session) *Draft {
	return session.Value(sess, draftKey, func() *Draft { return &Draft{} })
}

// Get returns the stored form.
func (d *Draft) Get() SendRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.req
}

func (d *Draft) set(req SendRequest) {
	d.mu.Lock()
	d.req = req
	d.mu.Unlock()
}

func (d *Draft) clear() {
	d.set(SendRequest{})
}

// BalanceView is the balance as shown to the user.
type BalanceView struct {
	Account     string     `json:"account"`
	BalanceMist uint64     `json:"balance_mist,string"`
	Balance     string     `json:"balance"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// HistoryItem is a record with its display fields.
type HistoryItem struct {
	transactions.Record
	ShortRecipient string `json:"short_recipient"`
	ShortDigest    string `json:"short_digest"`
	Age            string `json:"age"`
}

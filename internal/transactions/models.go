// Package transactions keeps a record of every transaction the portal
// handed to a wallet and follows it until the chain confirms or rejects it.
package transactions

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/workflows"
)

var (
	ErrRecordNotFound = errors.New("transaction record not found")
	ErrStaleStatus    = errors.New("transaction record status changed concurrently")
)

// Status is the lifecycle of a submitted transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Operation names the flow that produced a record.
type Operation string

const (
	OperationRemittance       Operation = "remittance"
	OperationTreasuryPurchase Operation = "treasury_purchase"
	OperationRegisterProject  Operation = "register_project"
	OperationListForSale      Operation = "list_for_sale"
	OperationBuyListing       Operation = "buy_listing"
)

// NewStatusMachine returns the record lifecycle: pending settles once,
// to confirmed or failed.
func NewStatusMachine() *workflows.StateMachine {
	return workflows.NewStateMachine(map[string][]string{
		string(StatusPending):   {string(StatusConfirmed), string(StatusFailed)},
		string(StatusConfirmed): {},
		string(StatusFailed):    {},
	})
}

// Record is one submitted transaction. Amount keeps the value as the user
// entered it; AmountMist is what was sent.
type Record struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	SessionID     string         `json:"session_id" gorm:"not null;index"`
	Operation     Operation      `json:"operation" gorm:"not null;index"`
	Sender        string         `json:"sender" gorm:"not null"`
	Recipient     string         `json:"recipient,omitempty"`
	Amount        string         `json:"amount"`
	AmountMist    uint64         `json:"amount_mist,string" gorm:"type:numeric(20,0);not null;default:0"`
	Digest        string         `json:"digest" gorm:"not null;index"`
	Status        Status         `json:"status" gorm:"default:'pending';index"`
	FailureReason *string        `json:"failure_reason,omitempty"`
	Effects       datatypes.JSON `json:"effects,omitempty"`
	Checkpoint    *uint64        `json:"checkpoint,omitempty,string" gorm:"type:numeric(20,0)"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	ConfirmedAt   *time.Time     `json:"confirmed_at,omitempty"`
}

func (Record) TableName() string {
	return "transaction_records"
}

// ShortSender renders the sender for display.
func (r *Record) ShortSender() string {
	return sui.ShortAddress(r.Sender)
}

// ShortRecipient renders the recipient for display.
func (r *Record) ShortRecipient() string {
	return sui.ShortAddress(r.Recipient)
}

// StatusUpdate settles a pending record.
type StatusUpdate struct {
	Status        Status
	FailureReason *string
	Effects       datatypes.JSON
	Checkpoint    *uint64
	At            time.Time
}

func (u StatusUpdate) apply(r *Record) {
	r.Status = u.Status
	r.FailureReason = u.FailureReason
	if len(u.Effects) > 0 {
		r.Effects = u.Effects
	}
	if u.Checkpoint != nil {
		r.Checkpoint = u.Checkpoint
	}
	r.UpdatedAt = u.At
	if u.Status == StatusConfirmed {
		at := u.At
		r.ConfirmedAt = &at
	}
}

// ListFilter narrows a session's history.
type ListFilter struct {
	Status    Status
	Operation Operation
	Limit     int
}

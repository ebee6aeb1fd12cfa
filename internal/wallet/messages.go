package wallet

import (
	"fmt"
	"time"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

type MessageType string

const (
	MessageTypeConnect        MessageType = "connect"
	MessageTypeDisconnect     MessageType = "disconnect"
	MessageTypeSignAndExecute MessageType = "sign_and_execute"
	MessageTypeResult         MessageType = "result"
	MessageTypeStatus         MessageType = "status"
	MessageTypeError          MessageType = "error"
)

// Message is the envelope exchanged with the browser wallet.
type Message struct {
	Type        MessageType             `json:"type"`
	ID          string                  `json:"id,omitempty"`
	Address     string                  `json:"address,omitempty"`
	Transaction *txbuilder.Transaction  `json:"transaction,omitempty"`
	Digest      string                  `json:"digest,omitempty"`
	Effects     *sui.TransactionEffects `json:"effects,omitempty"`
	Error       *Error                  `json:"error,omitempty"`
	Status      string                  `json:"status,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
}

// CodeUserRejected is the wallet standard code for a declined request.
const CodeUserRejected = 4001

// Error is a failure reported by the wallet.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wallet error %d", e.Code)
	}
	return e.Message
}

// UserRejected reports whether the user declined the request in the wallet.
func (e *Error) UserRejected() bool {
	return e.Code == CodeUserRejected
}

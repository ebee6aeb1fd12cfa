package sui

import (
	"encoding/json"
	"strconv"
)

// Balance is the response of suix_getBalance.
type Balance struct {
	CoinType        string            `json:"coinType"`
	CoinObjectCount int               `json:"coinObjectCount"`
	TotalBalance    string            `json:"totalBalance"`
	LockedBalance   map[string]string `json:"lockedBalance,omitempty"`
}

// Mist parses the total balance.
func (b *Balance) Mist() (uint64, error) {
	return strconv.ParseUint(b.TotalBalance, 10, 64)
}

// ObjectDataOptions selects what sui_getObject returns.
type ObjectDataOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

// Object is the response of sui_getObject.
type Object struct {
	Data  *ObjectData     `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// ObjectData holds the fields of an object read.
type ObjectData struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type,omitempty"`
	Owner    json.RawMessage `json:"owner,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// TransactionBlockResponseOptions selects what sui_getTransactionBlock returns.
type TransactionBlockResponseOptions struct {
	ShowInput   bool `json:"showInput,omitempty"`
	ShowEffects bool `json:"showEffects,omitempty"`
	ShowEvents  bool `json:"showEvents,omitempty"`
}

// ExecutionStatus is the status block of transaction effects.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// TransactionEffects carries the subset of effects the portal inspects.
// Raw keeps the full effects document for storage.
type TransactionEffects struct {
	Status ExecutionStatus `json:"status"`
	Raw    json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw effects alongside the decoded status.
func (e *TransactionEffects) UnmarshalJSON(data []byte) error {
	var aux struct {
		Status ExecutionStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Status = aux.Status
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the raw effects when present.
func (e TransactionEffects) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(struct {
		Status ExecutionStatus `json:"status"`
	}{e.Status})
}

// Succeeded reports whether the effects carry a success status.
func (e *TransactionEffects) Succeeded() bool {
	return e != nil && e.Status.Status == StatusSuccess
}

// TransactionBlockResponse is returned by sui_getTransactionBlock and by the
// wallet after sign-and-execute.
type TransactionBlockResponse struct {
	Digest      string              `json:"digest"`
	Effects     *TransactionEffects `json:"effects,omitempty"`
	Checkpoint  string              `json:"checkpoint,omitempty"`
	TimestampMs string              `json:"timestampMs,omitempty"`
}

// CheckpointNumber parses the checkpoint sequence number, if any.
func (r *TransactionBlockResponse) CheckpointNumber() (uint64, bool) {
	if r.Checkpoint == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(r.Checkpoint, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

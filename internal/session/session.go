// Package session holds per-tab portal state: the connected wallet, the
// last known balance, the busy flag and typed values owned by the flows.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

var (
	ErrBusy               = errors.New("another transaction is in progress")
	ErrWalletNotConnected = errors.New("Please connect your wallet first")
	ErrNotFound           = errors.New("session not found")
)

// Signer is the wallet attached to a session. It signs and broadcasts one
// transaction per call.
type Signer interface {
	Address() string
	SignAndExecute(ctx context.Context, tx *txbuilder.Transaction) (*sui.TransactionBlockResponse, error)
	Disconnect(ctx context.Context) error
}

// Session is the state of one browser tab.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	signer    Signer
	balance   uint64
	balanceAt time.Time
	hasBal    bool
	busy      bool
	values    map[string]any
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		values:    make(map[string]any),
	}
}

// Attach makes signer the session's wallet, replacing any previous one.
// The cached balance belongs to the previous account and is dropped.
func (s *Session) Attach(signer Signer) Signer {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.signer
	s.signer = signer
	s.balance, s.balanceAt, s.hasBal = 0, time.Time{}, false
	return prev
}

// Detach removes signer if it is still the attached wallet.
func (s *Session) Detach(signer Signer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signer == nil || s.signer != signer {
		return false
	}
	s.signer = nil
	s.balance, s.balanceAt, s.hasBal = 0, time.Time{}, false
	return true
}

// Signer returns the attached wallet or ErrWalletNotConnected.
func (s *Session) Signer() (Signer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.signer == nil {
		return nil, ErrWalletNotConnected
	}
	return s.signer, nil
}

// Account is the connected address, empty when no wallet is attached.
func (s *Session) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.signer == nil {
		return ""
	}
	return s.signer.Address()
}

// SetBalance records a balance read for account. Reads that finish after
// the wallet changed are ignored.
func (s *Session) SetBalance(account string, mist uint64, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signer == nil || s.signer.Address() != account {
		return false
	}
	s.balance, s.balanceAt, s.hasBal = mist, at, true
	return true
}

// Balance returns the last known balance in MIST.
func (s *Session) Balance() (uint64, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, s.balanceAt, s.hasBal
}

// Begin sets the busy flag. The returned release clears it and must be
// called once the operation settles.
func (s *Session) Begin() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return nil, ErrBusy
	}
	s.busy = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy = false
			s.mu.Unlock()
		})
	}, nil
}

func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Value returns the session value stored under key, creating it with init
// on first use. T is normally a pointer type guarding its own state.
func Value[T any](s *Session, key string, init func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.values[key]; ok {
		if typed, ok := v.(T); ok {
			return typed
		}
	}
	v := init()
	s.values[key] = v
	return v
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID               string     `json:"id"`
	Account          string     `json:"account,omitempty"`
	Connected        bool       `json:"connected"`
	BalanceMist      *uint64    `json:"balance_mist,omitempty"`
	Balance          string     `json:"balance,omitempty"`
	BalanceUpdatedAt *time.Time `json:"balance_updated_at,omitempty"`
	Busy             bool       `json:"busy"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:        s.ID,
		Connected: s.signer != nil,
		Busy:      s.busy,
		CreatedAt: s.CreatedAt,
	}
	if s.signer != nil {
		snap.Account = s.signer.Address()
	}
	if s.hasBal {
		bal, at := s.balance, s.balanceAt
		snap.BalanceMist = &bal
		snap.Balance = sui.FormatSUI(bal, 4)
		snap.BalanceUpdatedAt = &at
	}
	return snap
}

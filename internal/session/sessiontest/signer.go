// Package sessiontest provides a mock wallet for tests of the flows built
// on top of sessions.
package sessiontest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// Account is a valid 32-byte address used as the connected wallet.
var Account = "0x" + strings.Repeat("ab", 32)

// Recipient is a second valid address.
var Recipient = "0x" + strings.Repeat("cd", 32)

type MockSigner struct {
	mock.Mock
	address string
}

func NewMockSigner(address string) *MockSigner {
	return &MockSigner{address: address}
}

func (m *MockSigner) Address() string { return m.address }

func (m *MockSigner) SignAndExecute(ctx context.Context, tx *txbuilder.Transaction) (*sui.TransactionBlockResponse, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.TransactionBlockResponse), args.Error(1)
}

func (m *MockSigner) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// NewSession returns a live session from a store that is stopped when the
// test ends.
func NewSession(t testing.TB) *session.Session {
	t.Helper()
	store := session.NewStore(time.Hour)
	t.Cleanup(store.Stop)
	return store.Create()
}

// Connected returns a session with a MockSigner for Account attached.
func Connected(t testing.TB) (*session.Session, *MockSigner) {
	t.Helper()
	sess := NewSession(t)
	signer := NewMockSigner(Account)
	sess.Attach(signer)
	return sess, signer
}

// Success is a wallet response whose effects report success.
func Success(digest string) *sui.TransactionBlockResponse {
	return &sui.TransactionBlockResponse{
		Digest:  digest,
		Effects: &sui.TransactionEffects{Status: sui.ExecutionStatus{Status: sui.StatusSuccess}},
	}
}

// Failure is a wallet response whose effects report an execution failure.
func Failure(digest, reason string) *sui.TransactionBlockResponse {
	return &sui.TransactionBlockResponse{
		Digest:  digest,
		Effects: &sui.TransactionEffects{Status: sui.ExecutionStatus{Status: sui.StatusFailure, Error: reason}},
	}
}

// Use binds sess to every request, standing in for session.Middleware.
func Use(sess *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.Bind(c, sess)
		c.Next()
	}
}

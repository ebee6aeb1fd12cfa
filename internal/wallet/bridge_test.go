package wallet

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

var (
	walletAddress = "0x" + strings.Repeat("ab", 32)
	remitPackage  = "0x" + strings.Repeat("2e", 32)
)

type bridgeFixture struct {
	server    *httptest.Server
	store     *session.Store
	sess      *session.Session
	token     string
	connected chan string
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewStore(time.Hour)
	t.Cleanup(store.Stop)
	tokens, err := session.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	sess := store.Create()
	token, _, err := tokens.Issue(sess.ID)
	require.NoError(t, err)

	connected := make(chan string, 1)
	manager := NewManager(zap.NewNop(), nil, nil)
	manager.OnConnect(func(ctx context.Context, s *session.Session) {
		connected <- s.Account()
	})

	r := gin.New()
	authed := r.Group("/api/v1", session.Middleware(store, tokens))
	NewHandler(manager, zap.NewNop()).RegisterRoutes(authed)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &bridgeFixture{server: srv, store: store, sess: sess, token: token, connected: connected}
}

func (f *bridgeFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/v1/wallet/connect?token=" + f.token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func connectWallet(t *testing.T, f *bridgeFixture) *websocket.Conn {
	t.Helper()
	ws := f.dial(t)
	require.NoError(t, ws.WriteJSON(Message{Type: MessageTypeConnect, Address: walletAddress}))

	var status Message
	require.NoError(t, ws.ReadJSON(&status))
	require.Equal(t, MessageTypeStatus, status.Type)
	require.Equal(t, "connected", status.Status)

	select {
	case account := <-f.connected:
		assert.Equal(t, walletAddress, account)
	case <-time.After(2 * time.Second):
		t.Fatal("connect hook did not run")
	}
	return ws
}

func TestSignAndExecute(t *testing.T) {
	f := newBridgeFixture(t)
	ws := connectWallet(t, f)

	signer, err := f.sess.Signer()
	require.NoError(t, err)
	assert.Equal(t, walletAddress, signer.Address())

	tx, err := txbuilder.Transfer(remitPackage, walletAddress, 1_000_000_000)
	require.NoError(t, err)

	type result struct {
		resp *sui.TransactionBlockResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := signer.SignAndExecute(context.Background(), tx)
		done <- result{resp, err}
	}()

	var req Message
	require.NoError(t, ws.ReadJSON(&req))
	assert.Equal(t, MessageTypeSignAndExecute, req.Type)
	require.NotEmpty(t, req.ID)
	require.NotNil(t, req.Transaction)
	assert.Equal(t, walletAddress, req.Transaction.Sender)

	require.NoError(t, ws.WriteJSON(Message{
		Type:    MessageTypeResult,
		ID:      req.ID,
		Digest:  "5Hh3digest",
		Effects: &sui.TransactionEffects{Status: sui.ExecutionStatus{Status: sui.StatusSuccess}},
	}))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "5Hh3digest", r.resp.Digest)
		assert.True(t, r.resp.Effects.Succeeded())
	case <-time.After(2 * time.Second):
		t.Fatal("sign and execute did not return")
	}
}

func TestSignAndExecuteRejected(t *testing.T) {
	f := newBridgeFixture(t)
	ws := connectWallet(t, f)

	signer, err := f.sess.Signer()
	require.NoError(t, err)
	tx, err := txbuilder.Transfer(remitPackage, walletAddress, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := signer.SignAndExecute(context.Background(), tx)
		done <- err
	}()

	var req Message
	require.NoError(t, ws.ReadJSON(&req))
	require.NoError(t, ws.WriteJSON(Message{
		Type:  MessageTypeResult,
		ID:    req.ID,
		Error: &Error{Code: CodeUserRejected, Message: "User rejected the request"},
	}))

	select {
	case err := <-done:
		var walletErr *Error
		require.True(t, errors.As(err, &walletErr))
		assert.True(t, walletErr.UserRejected())
		assert.Equal(t, "User rejected the request", err.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("sign and execute did not return")
	}
}

func TestSignAndExecuteContextCancelled(t *testing.T) {
	f := newBridgeFixture(t)
	ws := connectWallet(t, f)

	signer, err := f.sess.Signer()
	require.NoError(t, err)
	tx, err := txbuilder.Transfer(remitPackage, walletAddress, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go func() {
		var req Message
		_ = ws.ReadJSON(&req)
	}()

	_, err = signer.SignAndExecute(ctx, tx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseDetachesWallet(t *testing.T) {
	f := newBridgeFixture(t)
	ws := connectWallet(t, f)

	require.NoError(t, ws.Close())

	assert.Eventually(t, func() bool {
		_, err := f.sess.Signer()
		return errors.Is(err, session.ErrWalletNotConnected)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnectMessage(t *testing.T) {
	f := newBridgeFixture(t)
	ws := connectWallet(t, f)

	require.NoError(t, ws.WriteJSON(Message{Type: MessageTypeDisconnect}))

	var status Message
	require.NoError(t, ws.ReadJSON(&status))
	assert.Equal(t, "disconnected", status.Status)
	assert.Equal(t, "", f.sess.Account())
}

func TestConnectRejectsBadAddress(t *testing.T) {
	f := newBridgeFixture(t)
	ws := f.dial(t)

	require.NoError(t, ws.WriteJSON(Message{Type: MessageTypeConnect, Address: "0x1234"}))

	var reply Message
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, MessageTypeError, reply.Type)
	assert.Equal(t, "", f.sess.Account())
}

func TestErrorUserRejected(t *testing.T) {
	assert.True(t, (&Error{Code: 4001}).UserRejected())
	assert.False(t, (&Error{Code: -32603, Message: "boom"}).UserRejected())
	assert.Equal(t, "wallet error 4001", (&Error{Code: 4001}).Error())
}

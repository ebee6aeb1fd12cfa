// Package wallet bridges a browser wallet to the portal over a WebSocket.
// The wallet announces its account, then signs and executes transactions
// the portal sends it, one request id per transaction.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/metrics"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

var (
	ErrConnectionClosed = errors.New("wallet connection closed")
	ErrNoAccount        = errors.New("wallet has not announced an account")
	ErrEmptyResult      = errors.New("wallet returned no transaction digest")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20
)

// ConnectHook runs after a wallet attaches to a session.
type ConnectHook func(ctx context.Context, sess *session.Session)

// Manager owns the open wallet connections.
type Manager struct {
	connections map[string]*Conn
	mu          sync.RWMutex
	upgrader    websocket.Upgrader
	onConnect   ConnectHook
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// Conn is one wallet connection bound to a session. It implements
// session.Signer.
type Conn struct {
	ID           string
	LastActivity time.Time

	sess    *session.Session
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	address string
	pending map[string]chan Message

	closed    chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewManager(logger *zap.Logger, m *metrics.Metrics, allowedOrigins []string) *Manager {
	return &Manager{
		connections: make(map[string]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger:  logger,
		metrics: m,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// OnConnect registers hook to run whenever a wallet announces its account.
func (m *Manager) OnConnect(hook ConnectHook) {
	m.onConnect = hook
}

// HandleConnection upgrades the request and serves the wallet for sess
// until the socket closes.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	conn := &Conn{
		ID:           uuid.New().String(),
		LastActivity: time.Now(),
		sess:         sess,
		ws:           ws,
		pending:      make(map[string]chan Message),
		closed:       make(chan struct{}),
		logger:       m.logger.With(zap.String("session_id", sess.ID)),
	}

	m.mu.Lock()
	m.connections[conn.ID] = conn
	m.mu.Unlock()
	m.metrics.WalletConnected()

	go m.pingLoop(conn)
	m.readPump(conn)
	return nil
}

func (m *Manager) readPump(conn *Conn) {
	defer func() {
		conn.close()
		if conn.sess.Detach(conn) {
			conn.logger.Info("Wallet detached on close")
		}
		m.mu.Lock()
		delete(m.connections, conn.ID)
		m.mu.Unlock()
		m.metrics.WalletDisconnected()
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.logger.Warn("Wallet connection error", zap.Error(err))
			}
			return
		}
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))

		conn.mu.Lock()
		conn.LastActivity = time.Now()
		conn.mu.Unlock()

		m.handleMessage(conn, &msg)
	}
}

func (m *Manager) pingLoop(conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn.writeMu.Lock()
			err := conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			conn.writeMu.Unlock()
			if err != nil {
				conn.close()
				return
			}
		case <-conn.closed:
			return
		}
	}
}

func (m *Manager) handleMessage(conn *Conn, msg *Message) {
	switch msg.Type {
	case MessageTypeConnect:
		m.handleConnect(conn, msg)
	case MessageTypeDisconnect:
		conn.setAddress("")
		conn.sess.Detach(conn)
		conn.logger.Info("Wallet disconnected")
		conn.send(Message{Type: MessageTypeStatus, Status: "disconnected"})
	case MessageTypeResult:
		conn.deliver(msg)
	default:
		conn.logger.Warn("Unknown wallet message type", zap.String("type", string(msg.Type)))
		conn.send(Message{Type: MessageTypeError, Error: &Error{Code: -32601, Message: "unknown message type"}})
	}
}

func (m *Manager) handleConnect(conn *Conn, msg *Message) {
	addr, err := sui.NormalizeAddress(msg.Address)
	if err != nil {
		conn.send(Message{Type: MessageTypeError, Error: &Error{Code: -32602, Message: "Please enter a valid Sui address"}})
		return
	}

	conn.setAddress(addr)
	if prev := conn.sess.Attach(conn); prev != nil && prev != session.Signer(conn) {
		conn.logger.Info("Replacing previously attached wallet")
	}
	conn.logger.Info("Wallet connected", zap.String("address", addr))
	conn.send(Message{Type: MessageTypeStatus, Status: "connected", Address: addr})

	if m.onConnect != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		go func() {
			defer cancel()
			m.onConnect(ctx, conn.sess)
		}()
	}
}

// ConnectionCount returns the number of open wallet connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close closes every open connection.
func (m *Manager) Close() {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.connections))
	for _, c := range m.connections {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

// Address is the account the wallet announced.
func (c *Conn) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

func (c *Conn) setAddress(addr string) {
	c.mu.Lock()
	c.address = addr
	c.mu.Unlock()
}

// SignAndExecute asks the wallet to sign and broadcast tx and waits for
// its answer. It makes exactly one attempt.
func (c *Conn) SignAndExecute(ctx context.Context, tx *txbuilder.Transaction) (*sui.TransactionBlockResponse, error) {
	addr := c.Address()
	if addr == "" {
		return nil, ErrNoAccount
	}

	id := uuid.New().String()
	reply := make(chan Message, 1)

	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := Message{Type: MessageTypeSignAndExecute, ID: id, Transaction: tx.WithSender(addr)}
	if err := c.send(req); err != nil {
		return nil, err
	}

	select {
	case msg := <-reply:
		if msg.Error != nil {
			return nil, msg.Error
		}
		if msg.Digest == "" {
			return nil, ErrEmptyResult
		}
		return &sui.TransactionBlockResponse{Digest: msg.Digest, Effects: msg.Effects}, nil
	case <-c.closed:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect tells the wallet to disconnect. The caller detaches the
// connection from its session.
func (c *Conn) Disconnect(ctx context.Context) error {
	c.setAddress("")
	return c.send(Message{Type: MessageTypeDisconnect})
}

func (c *Conn) deliver(msg *Message) {
	c.mu.Lock()
	reply, ok := c.pending[msg.ID]
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("Result for unknown request", zap.String("request_id", msg.ID))
		return
	}
	select {
	case reply <- *msg:
	default:
	}
}

func (c *Conn) send(msg Message) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to wallet: %w", err)
	}
	return nil
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.ws.Close()
	})
}

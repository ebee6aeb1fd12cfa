package sui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
)

// Network names understood by NewClient.
const (
	NetworkMainnet  = "mainnet"
	NetworkTestnet  = "testnet"
	NetworkDevnet   = "devnet"
	NetworkLocalnet = "localnet"
)

var fullnodeURLs = map[string]string{
	NetworkMainnet:  "https://fullnode.mainnet.sui.io:443",
	NetworkTestnet:  "https://fullnode.testnet.sui.io:443",
	NetworkDevnet:   "https://fullnode.devnet.sui.io:443",
	NetworkLocalnet: "http://127.0.0.1:9000",
}

var ErrUnknownNetwork = errors.New("unknown sui network")

// FullnodeURL returns the public fullnode endpoint for a network.
func FullnodeURL(network string) (string, error) {
	url, ok := fullnodeURLs[strings.ToLower(network)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
	return url, nil
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Network string        `json:"network"`
	RPCURL  string        `json:"rpc_url"`
	Timeout time.Duration `json:"timeout"`
}

// Client is a read-only Sui JSON-RPC client. It holds no state beyond the
// connection and is safe for concurrent use.
type Client struct {
	rpc *jrpc2.Client
	url string
}

// NewClient creates a client for the configured endpoint. An explicit RPC
// URL wins over the network default.
func NewClient(cfg ClientConfig) (*Client, error) {
	url := cfg.RPCURL
	if url == "" {
		network := cfg.Network
		if network == "" {
			network = NetworkTestnet
		}
		var err error
		if url, err = FullnodeURL(network); err != nil {
			return nil, err
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ch := jhttp.NewChannel(url, &jhttp.ChannelOptions{
		Client: &http.Client{Timeout: timeout},
	})
	return &Client{
		rpc: jrpc2.NewClient(ch, nil),
		url: url,
	}, nil
}

// URL returns the endpoint this client talks to.
func (c *Client) URL() string {
	return c.url
}

// GetBalance returns the total balance of coinType owned by owner.
func (c *Client) GetBalance(ctx context.Context, owner, coinType string) (*Balance, error) {
	if coinType == "" {
		coinType = SUICoinType
	}
	var out Balance
	if err := c.rpc.CallResult(ctx, "suix_getBalance", []any{owner, coinType}, &out); err != nil {
		return nil, fmt.Errorf("failed to get balance for %s: %w", owner, err)
	}
	return &out, nil
}

// GetObject reads an object with its type, owner and content.
func (c *Client) GetObject(ctx context.Context, objectID string) (*Object, error) {
	opts := ObjectDataOptions{ShowType: true, ShowOwner: true, ShowContent: true}
	var out Object
	if err := c.rpc.CallResult(ctx, "sui_getObject", []any{objectID, opts}, &out); err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectID, err)
	}
	return &out, nil
}

// GetTransactionBlock looks up a transaction by digest with its effects.
func (c *Client) GetTransactionBlock(ctx context.Context, digest string) (*TransactionBlockResponse, error) {
	opts := TransactionBlockResponseOptions{ShowEffects: true}
	var out TransactionBlockResponse
	if err := c.rpc.CallResult(ctx, "sui_getTransactionBlock", []any{digest, opts}, &out); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", digest, err)
	}
	return &out, nil
}

// IsNotFound reports whether err is the fullnode saying a transaction or
// object is not (yet) known.
func IsNotFound(err error) bool {
	var rpcErr *jrpc2.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "could not find") || strings.Contains(msg, "not found")
}

// Close releases the underlying channel.
func (c *Client) Close() error {
	return c.rpc.Close()
}

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
)

var (
	testAccount   = "0x" + strings.Repeat("ab", 32)
	testRecipient = "0x" + strings.Repeat("cd", 32)
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// fullnode answers single or batched JSON-RPC calls from results keyed by
// method name.
func fullnode(t *testing.T, results map[string]any, errs map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		type request struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		type response struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Result  any             `json:"result,omitempty"`
			Error   any             `json:"error,omitempty"`
		}

		trimmed := bytes.TrimSpace(body)
		batch := len(trimmed) > 0 && trimmed[0] == '['
		var reqs []request
		if batch {
			require.NoError(t, json.Unmarshal(trimmed, &reqs))
		} else {
			var req request
			require.NoError(t, json.Unmarshal(trimmed, &req))
			reqs = append(reqs, req)
		}

		var resps []response
		for _, req := range reqs {
			resps = append(resps, response{JSONRPC: "2.0", ID: req.ID, Result: results[req.Method], Error: errs[req.Method]})
		}
		w.Header().Set("Content-Type", "application/json")
		if batch {
			_ = json.NewEncoder(w).Encode(resps)
			return
		}
		_ = json.NewEncoder(w).Encode(resps[0])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", "InsufficientGas: Insufficient gas for the transaction")
	require.NoError(t, err)

	var got classification
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "insufficient_funds", string(got.Kind))
	assert.Equal(t, "Insufficient balance for transaction.", got.Notice)

	out, err = run(t, "classify", "MoveAbort(MoveLocation { module: carbon_credits }, 7) in command 1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "contract_aborted", string(got.Kind))
	require.NotNil(t, got.AbortCode)
	assert.Equal(t, uint64(7), *got.AbortCode)
}

func TestBuildTransfer(t *testing.T) {
	out, err := run(t, "build", "transfer", "--to", testRecipient, "--amount", "1.5", "--sender", testAccount)
	require.NoError(t, err)

	var tx txbuilder.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &tx))
	assert.Equal(t, 2, tx.Version)
	assert.Equal(t, testAccount, tx.Sender)
	assert.Equal(t, []string{
		"0x08a91e0eee53bdade76d9b4c37ceead073d249ac2870f458fc78fc366c46bd40::remittance::send_remittance",
	}, tx.Targets())
}

func TestBuildTransferRejectsBadInput(t *testing.T) {
	_, err := run(t, "build", "transfer", "--to", "0x12", "--amount", "1")
	assert.Error(t, err)

	_, err = run(t, "build", "transfer", "--to", testRecipient, "--amount", "-1")
	assert.Error(t, err)

	_, err = run(t, "build", "transfer", "--to", testRecipient)
	assert.Error(t, err)
}

func TestBuildPurchaseUsesFlags(t *testing.T) {
	pkg := "0x" + strings.Repeat("11", 32)
	out, err := run(t, "build", "purchase", "--credits", "50", "--package-id", pkg)
	require.NoError(t, err)

	var tx txbuilder.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &tx))
	assert.Equal(t, []string{pkg + "::carbon_credits::purchase_carbon_credits"}, tx.Targets())
}

func TestBalance(t *testing.T) {
	srv := fullnode(t, map[string]any{
		"suix_getBalance": map[string]any{
			"coinType":        "0x2::sui::SUI",
			"coinObjectCount": 3,
			"totalBalance":    "2500000000",
		},
	}, nil)

	out, err := run(t, "balance", testAccount, "--rpc-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "2.5000 SUI (2500000000 MIST, 3 coins)\n", out)
}

func TestTxStatus(t *testing.T) {
	srv := fullnode(t, map[string]any{
		"sui_getTransactionBlock": map[string]any{
			"digest":     "Dg1",
			"checkpoint": "1042",
			"effects": map[string]any{
				"status": map[string]any{"status": "failure", "error": "MoveAbort(_, 3)"},
			},
		},
	}, nil)

	out, err := run(t, "tx", "Dg1", "--rpc-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "status:     failure")
	assert.Contains(t, out, "error:      MoveAbort(_, 3)")
	assert.Contains(t, out, "checkpoint: 1042")
}

func TestTxNotFound(t *testing.T) {
	srv := fullnode(t, nil, map[string]any{
		"sui_getTransactionBlock": map[string]any{"code": -32602, "message": "Could not find the referenced transaction"},
	})

	out, err := run(t, "tx", "Dg2", "--rpc-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Dg2: not found (pending or unknown)\n", out)
}

func TestEnvOverridesDefaults(t *testing.T) {
	pkg := "0x" + strings.Repeat("22", 32)
	t.Setenv("PORTAL_REMITTANCE_PACKAGE_ID", pkg)

	out, err := run(t, "build", "transfer", "--to", testRecipient, "--amount", "1")
	require.NoError(t, err)
	assert.Contains(t, out, pkg)
}

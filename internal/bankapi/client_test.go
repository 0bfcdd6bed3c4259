package bankapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL}, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "test-token",
		TokenType:   "Bearer",
	}))
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"})

	tests := []struct {
		tokens  oauth2.TokenSource
		wantIs  error
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid", config: Config{BaseURL: "http://localhost:8000/"}, tokens: tokens},
		{name: "missing base URL", config: Config{}, tokens: tokens, wantErr: true},
		{name: "bad scheme", config: Config{BaseURL: "localhost:8000"}, tokens: tokens, wantErr: true},
		{name: "missing credentials", config: Config{BaseURL: "http://localhost:8000"}, wantErr: true, wantIs: ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config, tt.tokens)
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:8000", client.BaseURL())
		})
	}
}

func TestClient_SafetyCheck(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/safety-check", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"is_safe": false, "message": "Transaction may be fraudulent (confidence: 87.00%)"}`))
	})

	intent := model.TransferIntent{
		SenderAccountID:       3,
		ReceiverAccountNumber: "0987654321",
		Amount:                decimal.NewFromInt(250_000),
	}
	verdict, err := client.SafetyCheck(context.Background(), NewSafetyCheckRequest(intent))
	require.NoError(t, err)

	assert.False(t, verdict.IsSafe)
	assert.Equal(t, "Transaction may be fraudulent (confidence: 87.00%)", verdict.Message)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.InDelta(t, 3, gotBody["sender_account_id"], 0)
	assert.InDelta(t, 250_000, gotBody["amount"], 0)
	assert.Equal(t, "0987654321", gotBody["receiver_account_number"])
}

func TestNewSafetyCheckRequest_BlankReceiverIsNull(t *testing.T) {
	req := NewSafetyCheckRequest(model.TransferIntent{SenderAccountID: 1, Amount: decimal.NewFromInt(10)})
	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sender_account_id":1,"amount":10,"receiver_account_number":null}`, string(body))
}

func TestClient_SafetyCheckErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
		status     int
	}{
		{name: "string detail", status: http.StatusServiceUnavailable, body: `{"detail":"ML fraud detection service is unavailable. Model loading failed."}`, wantDetail: "ML fraud detection service is unavailable. Model loading failed."},
		{name: "validation detail", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`, wantDetail: "field required; value is not a valid integer"},
		{name: "plain body", status: http.StatusInternalServerError, body: "boom", wantDetail: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.SafetyCheck(context.Background(), SafetyCheckRequest{SenderAccountID: 1, Amount: 1})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
		})
	}
}

func TestClient_SafetyCheckHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"is_safe": true, "message": "ok"}`))
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SafetyCheck(ctx, SafetyCheckRequest{SenderAccountID: 1, Amount: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ScamCheck(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		body        string
		wantVerdict string
		wantErr     error
		wantCalls   int32
	}{
		{name: "not a scam", input: "my landlord", body: `{"success":true,"verdict":"This is not a scam"}`, wantVerdict: "This is not a scam", wantCalls: 1},
		{name: "scam", input: "stranger asked for OTP", body: `{"success":true,"verdict":"This is a scam"}`, wantVerdict: "This is a scam", wantCalls: 1},
		{name: "no success flag", input: "x", body: `{"verdict":"Not a scam."}`, wantVerdict: "Not a scam.", wantCalls: 1},
		{name: "server reported failure", input: "x", body: `{"success":false,"error":"Scam check prompt file not found"}`, wantErr: ErrScamCheckFailed, wantCalls: 1},
		{name: "empty input", input: "   ", wantErr: ErrEmptyInput, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Equal(t, "/api/scam-check", r.URL.Path)
				var req ScamCheckRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, tt.input, req.Input)
				_, _ = w.Write([]byte(tt.body))
			})

			verdict, err := client.ScamCheck(context.Background(), tt.input)
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerdict, verdict.Verdict)
		})
	}
}

func TestClient_Accounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/accounts/5":
			_, _ = w.Write([]byte(`{"id":5,"user_id":2,"account_number":"1234567890","account_type":"main","balance":1500000.5,"is_active":true,"created_at":"2025-01-02T03:04:05Z"}`))
		case "/api/bank-accounts/lookup/0987654321":
			_, _ = w.Write([]byte(`{"exists":true,"account_number":"0987654321","account_holder_name":"Le Van C","account_type":"main"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Account not found"}`))
		}
	})
	ctx := context.Background()

	account, err := client.GetAccount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", account.AccountNumber)
	assert.Equal(t, "1500000.5", account.Balance.String())

	_, err = client.GetAccount(ctx, 9)
	assert.True(t, IsNotFound(err))

	lookup, err := client.LookupAccount(ctx, "0987654321")
	require.NoError(t, err)
	assert.True(t, lookup.Exists)
	assert.Equal(t, "Le Van C", lookup.AccountHolderName)

	missing, err := client.LookupAccount(ctx, "1111111111")
	require.NoError(t, err)
	assert.False(t, missing.Exists)
}

func TestClient_Transfers(t *testing.T) {
	var internalBody, externalBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/api/transfer/internal":
			_ = json.Unmarshal(body, &internalBody)
			_, _ = w.Write([]byte(`{"success":true,"message":"ok","transfer_id":42,"amount_sent":100000,"amount_received":100000,"fee":0,"sender_new_balance":900000,"receiver_new_balance":100000,"receiver_name":"B"}`))
		case "/api/transfers":
			_ = json.Unmarshal(body, &externalBody)
			_, _ = w.Write([]byte(`{"id":7,"sender_account_id":1,"sender_account_number":"1234567890","receiver_account_number":"0987654321","receiver_bank":"VCB","receiver_name":"B","amount":100000,"fee":0,"fee_payer":"sender","description":null,"status":"completed","created_at":"2025-01-02T03:04:05Z"}`))
		}
	})
	ctx := context.Background()

	intent := model.TransferIntent{
		SenderAccountID:       1,
		ReceiverAccountNumber: "0987654321",
		ReceiverBank:          "vigipay",
		ReceiverName:          "B",
		Amount:                decimal.NewFromInt(100_000),
	}

	result, err := client.ExecuteInternalTransfer(ctx, NewInternalTransferRequest(intent))
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.TransferID)
	assert.Equal(t, "Internal transfer", internalBody["description"])
	assert.Equal(t, "sender", internalBody["fee_payer"])

	intent.ReceiverBank = "VCB"
	transfer, err := client.ExecuteTransfer(ctx, NewTransferRequest(intent))
	require.NoError(t, err)
	assert.Equal(t, "completed", transfer.Status)
	assert.Equal(t, "VCB", externalBody["receiver_bank"])
	_, hasDescription := externalBody["description"]
	assert.False(t, hasDescription)
}

func TestClient_InternalTransferUnsuccessful(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Insufficient balance"}`))
	})

	_, err := client.ExecuteInternalTransfer(context.Background(), InternalTransferRequest{SenderAccountID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient balance")
}

func fakeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return signed
}

func TestNewTokenSource(t *testing.T) {
	_, err := NewTokenSource(context.Background(), "http://x", "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	static, err := NewTokenSource(context.Background(), "http://x", "plain-token", "")
	require.NoError(t, err)
	tok, err := static.Token()
	require.NoError(t, err)
	assert.Equal(t, "plain-token", tok.AccessToken)
}

func TestNewTokenSource_RefreshesExpiredToken(t *testing.T) {
	fresh := fakeJWT(t, time.Now().Add(15*time.Minute))
	var refreshes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/refresh", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh_token"])
		refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(refreshResponse{AccessToken: fresh, RefreshToken: "refresh-2", TokenType: "bearer"})
	}))
	defer server.Close()

	expired := fakeJWT(t, time.Now().Add(-time.Hour))
	src, err := NewTokenSource(context.Background(), server.URL, expired, "refresh-1")
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, fresh, tok.AccessToken)
	assert.Equal(t, "refresh-2", tok.RefreshToken)

	// A valid token is reused without another refresh.
	_, err = src.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	got := tokenExpiry(fakeJWT(t, exp))
	assert.True(t, exp.Add(-refreshLeeway).Equal(got), "got %v", got)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	for _, token := range []string{"not-a-jwt", "a.!!!.c", noExp} {
		assert.True(t, tokenExpiry(token).IsZero(), token)
	}
}

package simplefin

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim(t *testing.T) {
	var accessURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(accessURL + "\n"))
	}))
	defer server.Close()
	accessURL = strings.Replace(server.URL, "http://", "http://user:secret@", 1) + "/simplefin"

	token := base64.StdEncoding.EncodeToString([]byte(server.URL + "/claim/abc"))
	got, err := Claim(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, accessURL, got)

	_, err = Claim(context.Background(), base64.StdEncoding.EncodeToString([]byte("not a url")))
	assert.Error(t, err)

	_, err = Claim(context.Background(), "%%%")
	assert.Error(t, err)
}

func TestClient_GetBalances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(t, "/accounts", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("balances-only"))
		_, _ = w.Write([]byte(`{"errors":[],"accounts":[
			{"id":"ACT-1","name":"Checking","currency":"VND","balance":"10000000","available-balance":"9500000","balance-date":1772355600},
			{"id":"ACT-2","name":"Savings","currency":"VND","balance":"50000000","balance-date":1772355600}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient(strings.Replace(server.URL, "http://", "http://user:secret@", 1))
	require.NoError(t, err)

	balances, err := client.GetBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)

	checking, err := FindBalance(balances, "ACT-1")
	require.NoError(t, err)
	assert.True(t, checking.Spendable().Equal(decimal.NewFromInt(9_500_000)))
	assert.Equal(t, int64(1772355600), checking.AsOf.Unix())

	savings, err := FindBalance(balances, "ACT-2")
	require.NoError(t, err)
	assert.True(t, savings.Spendable().Equal(decimal.NewFromInt(50_000_000)))

	_, err = FindBalance(balances, "")
	assert.ErrorIs(t, err, common.ErrUnknownAccount)
}

func TestClient_GetBalancesRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.GetBalances(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)
}

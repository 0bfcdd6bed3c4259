package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/stub"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	bank       *stub.Bank
	configPath string
}

// newTestEnv starts a demo bank, logs in as "an" and writes a config file
// pointing the CLI at it.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	bank, err := stub.DemoBank()
	require.NoError(t, err)
	issuer, err := stub.NewTokenIssuer([]byte("cli-test-secret"), time.Minute, time.Hour)
	require.NoError(t, err)
	server := httptest.NewServer(stub.NewServer(bank, issuer, stub.NewKeywordJudge(), nil).Router())
	t.Cleanup(server.Close)

	token, err := bankapi.Login(context.Background(), server.URL, "an", stub.DemoPassword)
	require.NoError(t, err)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`api:
  base_url: %s
auth:
  access_token: %s
  refresh_token: %s
database:
  path: %s
workflow:
  safe_delay: 10ms
logging:
  level: error
`, server.URL, token.AccessToken, token.RefreshToken, filepath.Join(dir, "vigil.db"))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))

	return &testEnv{bank: bank, configPath: configPath}
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", e.configPath))

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestTransferCommand_SafeTransferIsSent(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "y\n", "transfer",
		"--from", "1", "--to", "0987654321", "--name", "Tran Thi Binh",
		"--amount", "500000", "--description", "tien an")
	require.NoError(t, err)

	assert.Contains(t, out, "Safety check passed")
	assert.Contains(t, out, "Confirm transfer")
	assert.Contains(t, out, "Transfer ID")
	require.Len(t, env.bank.Transfers(), 1)

	out, err = env.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "confirmation/safe")
	assert.Contains(t, out, "Total: 1")
}

func TestTransferCommand_CancelAtReview(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "n\n", "transfer",
		"--from", "1", "--to", "0987654321", "--name", "Tran Thi Binh", "--amount", "500000")
	require.NoError(t, err)

	assert.Contains(t, out, "Transfer not sent")
	assert.Empty(t, env.bank.Transfers())
}

func TestTransferCommand_FlaggedRecipientCancelled(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "x\n", "transfer",
		"--from", "1", "--to", "5555666677", "--name", "Le Van Cuong", "--amount", "200000")
	require.NoError(t, err)

	assert.Contains(t, out, "Destination account flagged for fraud checking")
	assert.Contains(t, out, "vigil transfer --from 1 --to 5555666677")
	assert.NotContains(t, out, "Confirm transfer")
	assert.Empty(t, env.bank.Transfers())

	out, err = env.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "transfer_form/cancelled")
}

func TestTransferCommand_InvalidAmount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "transfer", "--from", "1", "--to", "0987654321", "--amount", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Invalid amount "lots"`)
}

func TestScamCheckCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "scam-check", "a man from the police says my account is frozen")
	require.NoError(t, err)
	assert.Contains(t, out, "High risk of scam")

	out, err = env.run(t, "", "scam-check", "paying my sister back for dinner")
	require.NoError(t, err)
	assert.NotContains(t, out, "High risk of scam")
}

func TestMigrateCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "Migrations pending")

	_, err = env.run(t, "", "migrate")
	require.NoError(t, err)

	out, err = env.run(t, "", "migrate", "--status")
	require.NoError(t, err)
	assert.NotContains(t, out, "Migrations pending")
}

func TestHistoryCommand_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No transfer checks recorded yet")
}

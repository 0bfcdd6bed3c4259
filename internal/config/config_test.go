package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("VIGIL_TEST_DIR", "/var/lib/vigil")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "home", in: "~", want: home},
		{name: "home relative", in: "~/.config/vigil/audit.db", want: filepath.Join(home, ".config/vigil/audit.db")},
		{name: "env var", in: "$VIGIL_TEST_DIR/audit.db", want: "/var/lib/vigil/audit.db"},
		{name: "plain", in: "/tmp/audit.db", want: "/tmp/audit.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoadSheetsConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}

	t.Run("missing auth", func(t *testing.T) {
		viper.Reset()
		_, err := LoadSheetsConfig()
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})

	t.Run("viper wins over env", func(t *testing.T) {
		viper.Reset()
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "from-env")
		viper.Set("sheets.service_account_path", "/etc/vigil/key.json")
		viper.Set("sheets.spreadsheet_id", "from-viper")

		config, err := LoadSheetsConfig()
		require.NoError(t, err)
		assert.Equal(t, "/etc/vigil/key.json", config.ServiceAccountPath)
		assert.Equal(t, "from-viper", config.SpreadsheetID)
	})

	t.Run("env fills gaps", func(t *testing.T) {
		viper.Reset()
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "id")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "refresh")

		config, err := LoadSheetsConfig()
		require.NoError(t, err)
		assert.Equal(t, "id", config.ClientID)
		assert.Empty(t, config.ServiceAccountPath)
	})

	t.Run("batch size and formatting", func(t *testing.T) {
		viper.Reset()
		viper.Set("sheets.service_account_path", "/etc/vigil/key.json")
		viper.Set("sheets.formatting", false)
		viper.Set("sheets.batch_size", 50)

		config, err := LoadSheetsConfig()
		require.NoError(t, err)
		assert.Equal(t, 50, config.BatchSize)
		assert.False(t, config.EnableFormatting)

		viper.Set("sheets.batch_size", 0)
		_, err = LoadSheetsConfig()
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}

package config

import (
	"github.com/Veraticus/vigil/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig builds the audit export configuration. Keys under sheets.*
// take precedence over GOOGLE_SHEETS_* variables, which take precedence over
// sheets.DefaultConfig.
func LoadSheetsConfig() (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	for key, field := range map[string]*string{
		"sheets.service_account_path": &cfg.ServiceAccountPath,
		"sheets.client_id":            &cfg.ClientID,
		"sheets.client_secret":        &cfg.ClientSecret,
		"sheets.refresh_token":        &cfg.RefreshToken,
		"sheets.spreadsheet_id":       &cfg.SpreadsheetID,
		"sheets.spreadsheet_name":     &cfg.SpreadsheetName,
		"sheets.timezone":             &cfg.TimeZone,
	} {
		if v := viper.GetString(key); v != "" {
			*field = v
		}
	}
	if viper.IsSet("sheets.batch_size") {
		cfg.BatchSize = viper.GetInt("sheets.batch_size")
	}
	if viper.IsSet("sheets.formatting") {
		cfg.EnableFormatting = viper.GetBool("sheets.formatting")
	}

	cfg.LoadFromEnv()
	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

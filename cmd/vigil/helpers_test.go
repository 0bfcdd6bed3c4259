package main

import (
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/balance"
	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBalanceSource(t *testing.T) {
	t.Cleanup(viper.Reset)
	accounts := bankapi.NewMockClient()

	tests := []struct {
		want    balance.Source
		wantErr error
		name    string
		source  string
		ofxPath string
		manual  decimal.Decimal
	}{
		{name: "manual balance wins", source: "plaid", manual: decimal.NewFromInt(100), want: balance.NewManualSource(decimal.NewFromInt(100))},
		{name: "default is api", source: "", want: balance.NewAPISource(accounts)},
		{name: "api", source: "api", want: balance.NewAPISource(accounts)},
		{name: "ofx", source: "ofx", ofxPath: "/tmp/bank.ofx", want: balance.NewOFXSource("/tmp/bank.ofx", "")},
		{name: "ofx needs a path", source: "ofx", wantErr: common.ErrMissingConfig},
		{name: "simplefin needs a link", source: "simplefin", wantErr: common.ErrMissingConfig},
		{name: "manual needs --balance", source: "manual", wantErr: common.ErrMissingConfig},
		{name: "unknown", source: "abacus", wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("ofx.path", tt.ofxPath)

			got, err := newBalanceSource(tt.source, tt.manual, accounts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestWorkflowConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Reset()
	assert.Equal(t, workflow.DefaultConfig(), workflowConfig())

	viper.Set("guard.threshold_percent", 75)
	viper.Set("workflow.safe_delay", "250ms")
	cfg := workflowConfig()
	assert.InDelta(t, 75.0, cfg.ThresholdPercent, 0.001)
	assert.Equal(t, 250*time.Millisecond, cfg.SafeDelay)
}

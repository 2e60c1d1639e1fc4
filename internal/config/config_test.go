package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c Config) {
				require.Equal(t, 8081, c.API.Port)
				require.Equal(t, "memory", c.Ledger.Store)
				require.Equal(t, time.Hour, c.App.ReceiptTTL)
				require.Equal(t, escrow.ProgramID, c.Ledger.EscrowProgramID)
				require.Nil(t, c.Ledger.Faucet)
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":              "9000",
				"ESCROW_PROGRAM_ID": "5555555555555555555555555555555555555555555555555555555555555555",
				"FAUCET_ACCOUNTS":   "3333333333333333333333333333333333333333333333333333333333333333, 7777777777777777777777777777777777777777777777777777777777777777",
				"API_KEYS":          "secret:tester,other:ci",
				"RECEIPT_TTL":       "5m",
			},
			check: func(t *testing.T, c Config) {
				require.Equal(t, 9000, c.API.Port)
				require.Equal(t, core.MustParseAddress("5555555555555555555555555555555555555555555555555555555555555555"), c.Ledger.EscrowProgramID)
				require.Equal(t, addressList{
					core.MustParseAddress("3333333333333333333333333333333333333333333333333333333333333333"),
					core.MustParseAddress("7777777777777777777777777777777777777777777777777777777777777777"),
				}, c.Ledger.Faucet)
				require.Equal(t, map[string]string{"secret": "tester", "other": "ci"}, c.API.APIKeys)
				require.Equal(t, 5*time.Minute, c.App.ReceiptTTL)
			},
		},
		{
			name:    "bad address",
			env:     map[string]string{"ESCROW_PROGRAM_ID": "xxx"},
			wantErr: true,
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"LEDGER_STORE": "postgres"},
			wantErr: true,
		},
		{
			name:    "unknown store",
			env:     map[string]string{"LEDGER_STORE": "redis"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			c, err := Parse()
			if tt.wantErr {
				require.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			tt.check(t, c)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.Nil(t, os.WriteFile(path, []byte("METRICS_PORT=9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("METRICS_PORT") })

	c := Load(path)
	require.Equal(t, 9999, c.App.MetricsPort)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Equal(t, 9010, c.App.MetricsPort)
}

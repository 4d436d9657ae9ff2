package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, Default().WriteFile(path))

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "")
	assert.Error(t, Default().WriteFile(path))
}

func TestLoadPartialOverride(t *testing.T) {
	path := writeConfig(t, `
[chain]
rpc = "http://node:26657"

[faucet]
timeout = "30s"
max_attempts = 0

[events]
contract_address_event = "instantiate"
contract_address_key = "_contract_address"
`)

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "http://node:26657", c.Chain.RPC)
	assert.Equal(t, "secretdev-1", c.Chain.ChainID)
	assert.Equal(t, 30*time.Second, c.Faucet.Timeout)
	assert.Equal(t, uint(0), c.Faucet.MaxAttempts)
	assert.Equal(t, int64(100_000_000), c.Faucet.TargetBalance)
	assert.Equal(t, "instantiate", c.Events.ContractAddressEvent)
	assert.Equal(t, "_contract_address", c.Events.ContractAddressKey)
	assert.Equal(t, "code_id", c.Events.CodeIDKey)
}

func TestLoadTxBroadcastKeys(t *testing.T) {
	c, err := Load(viper.New(), writeConfig(t, `
[tx]
gas_adjustment = 1.5
simulate = true
memo = "harness run"
`))
	require.NoError(t, err)
	assert.Equal(t, 1.5, c.Tx.GasAdjustment)
	assert.True(t, c.Tx.Simulate)
	assert.Equal(t, "harness run", c.Tx.Memo)
	assert.Equal(t, 1, c.Tx.MaxRetries)

	_, err = Load(viper.New(), writeConfig(t, "[tx]\ngas_adjustment = 0.0\n"))
	assert.ErrorContains(t, err, "tx.gas_adjustment")
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"debug\"\n")
	t.Setenv(EnvConfigPath, path)

	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("HOME", t.TempDir())

	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, `
[faucet]
target_balance = -1

[contracts]
label_prefix = ""
`)
	_, err := Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "faucet.target_balance")
	assert.Contains(t, err.Error(), "contracts.label_prefix")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Write(&buf))
	assert.Contains(t, buf.String(), `chain_id = "secretdev-1"`)
	assert.Contains(t, buf.String(), `retry_interval = "2s"`)
	assert.Contains(t, buf.String(), "[events]")
}

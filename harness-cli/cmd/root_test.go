package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zorostang/secret-upgradable-nfts/conf"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSubcommands(t *testing.T) {
	root := RootCmd()
	for _, name := range []string{"run", "deploy", "faucet", "config"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "node", "chain-id", "faucet", "log-level", "devnet", "metrics-addr"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	var tree map[string]map[string]any
	_, err = toml.DecodeFile(path, &tree)
	require.NoError(t, err)
	assert.Equal(t, "secretdev-1", tree["chain"]["chain_id"])

	_, err = execute(t, "config", "init", path)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestConfigShow(t *testing.T) {
	prev := conf.C
	t.Cleanup(func() { conf.C = prev })

	conf.C = nil
	_, err := execute(t, "config", "show")
	assert.EqualError(t, err, "config not loaded")

	conf.C = conf.Default()
	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `rpc = "http://localhost:26657"`)
}

func TestCommandsNeedConfig(t *testing.T) {
	prev := conf.C
	t.Cleanup(func() { conf.C = prev })
	conf.C = nil

	for _, args := range [][]string{{"run"}, {"deploy"}, {"faucet"}} {
		_, err := execute(t, args...)
		assert.EqualError(t, err, "config not loaded", args[0])
	}
}

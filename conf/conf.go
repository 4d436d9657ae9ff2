package conf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// EnvConfigPath names the environment variable holding an explicit config file path.
const EnvConfigPath = "HARNESS_CONFIG"

var C *Conf

type Conf struct {
	Log       LogConfig       `mapstructure:"log"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Faucet    FaucetConfig    `mapstructure:"faucet"`
	Tx        TxConfig        `mapstructure:"tx"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Events    EventsConfig    `mapstructure:"events"`
	Devnet    DevnetConfig    `mapstructure:"devnet"`
	Report    ReportConfig    `mapstructure:"report"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Backend string `mapstructure:"backend"`
}

type ChainConfig struct {
	RPC          string `mapstructure:"rpc"`
	ChainID      string `mapstructure:"chain_id"`
	Bech32Prefix string `mapstructure:"bech32_prefix"`
	Denom        string `mapstructure:"denom"`
	GasPrice     string `mapstructure:"gas_price"`
}

type FaucetConfig struct {
	URL           string        `mapstructure:"url"`
	TargetBalance int64         `mapstructure:"target_balance"`
	MaxAttempts   uint          `mapstructure:"max_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

type TxConfig struct {
	MaxRetries             int           `mapstructure:"max_retries"`
	RetryInterval          time.Duration `mapstructure:"retry_interval"`
	ConfirmationTimeout    time.Duration `mapstructure:"confirmation_timeout"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	GasPriceAdjustmentRate string        `mapstructure:"gas_price_adjustment_rate"`
	// GasAdjustment scales the simulated gas of executes when Simulate is set.
	GasAdjustment float64 `mapstructure:"gas_adjustment"`
	Simulate      bool    `mapstructure:"simulate"`
	Memo          string  `mapstructure:"memo"`
}

type ContractsConfig struct {
	NFTWasm        string `mapstructure:"nft_wasm"`
	ProviderWasm   string `mapstructure:"provider_wasm"`
	LabelPrefix    string `mapstructure:"label_prefix"`
	UploadGas      uint64 `mapstructure:"upload_gas"`
	InstantiateGas uint64 `mapstructure:"instantiate_gas"`
	ExecuteGas     uint64 `mapstructure:"execute_gas"`
}

type EventsConfig struct {
	CodeIDKey            string `mapstructure:"code_id_key"`
	ContractAddressEvent string `mapstructure:"contract_address_event"`
	ContractAddressKey   string `mapstructure:"contract_address_key"`
}

type DevnetConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Image   string `mapstructure:"image"`
}

type ReportConfig struct {
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func Default() *Conf {
	return &Conf{
		Log: LogConfig{Level: "info", Format: "console", Backend: "zap"},
		Chain: ChainConfig{
			RPC:          "http://localhost:26657",
			ChainID:      "secretdev-1",
			Bech32Prefix: "secret",
			Denom:        "uscrt",
			GasPrice:     "0.25uscrt",
		},
		Faucet: FaucetConfig{
			URL:           "http://localhost:5000/faucet",
			TargetBalance: 100_000_000,
			MaxAttempts:   30,
			RetryInterval: 2 * time.Second,
			Timeout:       2 * time.Minute,
			RatePerSecond: 1,
		},
		Tx: TxConfig{
			MaxRetries:             1,
			RetryInterval:          2 * time.Second,
			ConfirmationTimeout:    60 * time.Second,
			PollInterval:           time.Second,
			GasPriceAdjustmentRate: "1.1",
			GasAdjustment:          1.2,
		},
		Contracts: ContractsConfig{
			NFTWasm:        "wasm/snip721_upgradable.wasm",
			ProviderWasm:   "wasm/metadata_provider.wasm",
			LabelPrefix:    "My contract",
			UploadGas:      5_000_000,
			InstantiateGas: 1_000_000,
			ExecuteGas:     200_000,
		},
		Events: EventsConfig{
			CodeIDKey:            "code_id",
			ContractAddressEvent: "message",
			ContractAddressKey:   "contract_address",
		},
		Devnet: DevnetConfig{Image: "ghcr.io/scrtlabs/localsecret:v1.15.0"},
	}
}

// InitConfig loads the global config C from path, $HARNESS_CONFIG, or the default
// search locations, in that order.
func InitConfig(path string) error {
	c, err := Load(viper.GetViper(), path)
	if err != nil {
		return err
	}
	C = c
	return nil
}

// Load reads the config into a fresh Conf. A missing file is not an error when it was
// only searched for; an explicit path must exist.
func Load(v *viper.Viper, path string) (*Conf, error) {
	for section, values := range Default().tree() {
		for key, value := range values {
			v.SetDefault(section+"."+key, value)
		}
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	c := &Conf{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config file invalid: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "secret-harness"), nil
}

func (c *Conf) Validate() error {
	var errs []error
	if c.Chain.RPC == "" {
		errs = append(errs, errors.New("chain.rpc is required"))
	}
	if c.Chain.Bech32Prefix == "" {
		errs = append(errs, errors.New("chain.bech32_prefix is required"))
	}
	if c.Chain.Denom == "" {
		errs = append(errs, errors.New("chain.denom is required"))
	}
	if c.Faucet.TargetBalance < 0 {
		errs = append(errs, fmt.Errorf("faucet.target_balance must not be negative, got %d", c.Faucet.TargetBalance))
	}
	if c.Faucet.RatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("faucet.rate_per_second must be positive, got %v", c.Faucet.RatePerSecond))
	}
	if c.Tx.GasAdjustment <= 0 {
		errs = append(errs, fmt.Errorf("tx.gas_adjustment must be positive, got %v", c.Tx.GasAdjustment))
	}
	if c.Contracts.LabelPrefix == "" {
		errs = append(errs, errors.New("contracts.label_prefix is required"))
	}
	if c.Contracts.UploadGas == 0 || c.Contracts.InstantiateGas == 0 || c.Contracts.ExecuteGas == 0 {
		errs = append(errs, errors.New("contracts gas limits must be positive"))
	}
	if c.Events.CodeIDKey == "" || c.Events.ContractAddressKey == "" {
		errs = append(errs, errors.New("events.code_id_key and events.contract_address_key are required"))
	}
	return errors.Join(errs...)
}

// Write renders c as TOML.
func (c *Conf) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c.tree())
}

// WriteFile renders c to path, refusing to overwrite an existing file.
func (c *Conf) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	return c.Write(file)
}

// tree flattens c into sections keyed like the config file. Durations are kept as
// strings so the rendered file stays readable.
func (c *Conf) tree() map[string]map[string]any {
	return map[string]map[string]any{
		"log": {
			"level":   c.Log.Level,
			"format":  c.Log.Format,
			"backend": c.Log.Backend,
		},
		"chain": {
			"rpc":           c.Chain.RPC,
			"chain_id":      c.Chain.ChainID,
			"bech32_prefix": c.Chain.Bech32Prefix,
			"denom":         c.Chain.Denom,
			"gas_price":     c.Chain.GasPrice,
		},
		"faucet": {
			"url":             c.Faucet.URL,
			"target_balance":  c.Faucet.TargetBalance,
			"max_attempts":    c.Faucet.MaxAttempts,
			"retry_interval":  c.Faucet.RetryInterval.String(),
			"timeout":         c.Faucet.Timeout.String(),
			"rate_per_second": c.Faucet.RatePerSecond,
		},
		"tx": {
			"max_retries":               c.Tx.MaxRetries,
			"retry_interval":            c.Tx.RetryInterval.String(),
			"confirmation_timeout":      c.Tx.ConfirmationTimeout.String(),
			"poll_interval":             c.Tx.PollInterval.String(),
			"gas_price_adjustment_rate": c.Tx.GasPriceAdjustmentRate,
			"gas_adjustment":            c.Tx.GasAdjustment,
			"simulate":                  c.Tx.Simulate,
			"memo":                      c.Tx.Memo,
		},
		"contracts": {
			"nft_wasm":        c.Contracts.NFTWasm,
			"provider_wasm":   c.Contracts.ProviderWasm,
			"label_prefix":    c.Contracts.LabelPrefix,
			"upload_gas":      c.Contracts.UploadGas,
			"instantiate_gas": c.Contracts.InstantiateGas,
			"execute_gas":     c.Contracts.ExecuteGas,
		},
		"events": {
			"code_id_key":            c.Events.CodeIDKey,
			"contract_address_event": c.Events.ContractAddressEvent,
			"contract_address_key":   c.Events.ContractAddressKey,
		},
		"devnet": {
			"enabled": c.Devnet.Enabled,
			"image":   c.Devnet.Image,
		},
		"report": {
			"path": c.Report.Path,
		},
		"metrics": {
			"addr": c.Metrics.Addr,
		},
	}
}

/*
Package config defines the node configuration and loads it with viper from
$HOME/config/config.toml, with environment variables taking precedence.
*/
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"ibft_node/consensus/validation"
	"ibft_node/mempool"
	"ibft_node/store"
)

const (
	DefaultDirName    = ".ibft_node"
	DefaultConfigDir  = "config"
	DefaultDataDir    = "data"
	DefaultConfigName = "config"
	DefaultEnvPrefix  = "IBFT"

	defaultGenesisFile     = "genesis.json"
	defaultPrivValKeyFile  = "priv_validator_key.json"
	defaultChainStoreName  = "chain"
	defaultBlockValidation = "full"
)

// Config defines the top level configuration of a node.
type Config struct {
	RootDir string `mapstructure:"home"`

	ChainID  string `mapstructure:"chain_id"`
	LogLevel string `mapstructure:"log_level"`

	DBBackend string `mapstructure:"db_backend"`
	DBPath    string `mapstructure:"db_dir"`

	PrivValidatorKey string `mapstructure:"priv_validator_key_file"`
	Genesis          string `mapstructure:"genesis_file"`

	IBFT    IBFTConfig     `mapstructure:"ibft"`
	Mempool mempool.Config `mapstructure:"mempool"`
}

// IBFTConfig holds the consensus parameters.
type IBFTConfig struct {
	BlockPeriodSeconds    int64  `mapstructure:"block_period_seconds"`
	RequestTimeoutSeconds int64  `mapstructure:"request_timeout_seconds"`
	EpochLength           int64  `mapstructure:"epoch_length"`
	BlockValidation       string `mapstructure:"block_validation"`
}

// DefaultConfig returns a default configuration rooted at home.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		DBBackend:        string(store.GoLevelDBBackend),
		DBPath:           DefaultDataDir,
		PrivValidatorKey: filepath.Join(DefaultConfigDir, defaultPrivValKeyFile),
		Genesis:          filepath.Join(DefaultConfigDir, defaultGenesisFile),
		IBFT: IBFTConfig{
			BlockPeriodSeconds:    1,
			RequestTimeoutSeconds: 10,
			EpochLength:           30000,
			BlockValidation:       defaultBlockValidation,
		},
		Mempool: mempool.DefaultConfig(),
	}
}

// TestConfig returns a configuration for tests, backed by an in-memory db.
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.ChainID = "ibft-test-chain"
	cfg.DBBackend = string(store.MemDBBackend)
	cfg.LogLevel = "debug"
	return cfg
}

// SetRoot sets the RootDir for all Config structs.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation and returns an error if any
// check fails.
func (cfg *Config) ValidateBasic() error {
	switch store.BackendType(cfg.DBBackend) {
	case store.GoLevelDBBackend, store.MemDBBackend:
	default:
		return fmt.Errorf("unsupported db_backend %q", cfg.DBBackend)
	}
	if cfg.PrivValidatorKey == "" {
		return errors.New("priv_validator_key_file can't be empty")
	}
	if cfg.Genesis == "" {
		return errors.New("genesis_file can't be empty")
	}
	if err := cfg.IBFT.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [ibft] section")
	}
	return errors.Wrap(cfg.Mempool.ValidateBasic(), "error in [mempool] section")
}

func (cfg IBFTConfig) ValidateBasic() error {
	if cfg.BlockPeriodSeconds <= 0 {
		return errors.New("block_period_seconds must be positive")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return errors.New("request_timeout_seconds must be positive")
	}
	if cfg.EpochLength <= 0 {
		return errors.New("epoch_length must be positive")
	}
	if _, err := ParseBlockValidationMode(cfg.BlockValidation); err != nil {
		return err
	}
	return nil
}

func (cfg IBFTConfig) BlockPeriod() time.Duration {
	return time.Duration(cfg.BlockPeriodSeconds) * time.Second
}

func (cfg IBFTConfig) RequestTimeout() time.Duration {
	return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
}

// ValidationMode returns the configured block validation mode.
func (cfg IBFTConfig) ValidationMode() validation.BlockValidationMode {
	mode, err := ParseBlockValidationMode(cfg.BlockValidation)
	if err != nil {
		return validation.FullValidation
	}
	return mode
}

// IsEpochBoundary reports whether the validator set may change at height.
func (cfg IBFTConfig) IsEpochBoundary(height int64) bool {
	return height%cfg.EpochLength == 0
}

func ParseBlockValidationMode(s string) (validation.BlockValidationMode, error) {
	for _, mode := range []validation.BlockValidationMode{
		validation.FullValidation,
		validation.LightValidation,
		validation.NoValidation,
	} {
		if strings.EqualFold(s, mode.String()) {
			return mode, nil
		}
	}
	return validation.FullValidation, fmt.Errorf("unknown block_validation %q (want full, light or none)", s)
}

func (cfg *Config) GenesisFile() string {
	return rootify(cfg.Genesis, cfg.RootDir)
}

func (cfg *Config) PrivValidatorKeyFile() string {
	return rootify(cfg.PrivValidatorKey, cfg.RootDir)
}

func (cfg *Config) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

func (cfg *Config) ChainStoreName() string {
	return defaultChainStoreName
}

func (cfg *Config) ConfigFile() string {
	return filepath.Join(cfg.RootDir, DefaultConfigDir, DefaultConfigName+".toml")
}

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

//-----------------------------------------------------------------------------
// viper

// NewViper returns a viper instance with the defaults of cfg registered, so
// every key can be overridden from the environment as PREFIX_SECTION_KEY.
func NewViper(envPrefix string, cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("home", cfg.RootDir)
	v.SetDefault("chain_id", cfg.ChainID)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("db_backend", cfg.DBBackend)
	v.SetDefault("db_dir", cfg.DBPath)
	v.SetDefault("priv_validator_key_file", cfg.PrivValidatorKey)
	v.SetDefault("genesis_file", cfg.Genesis)
	v.SetDefault("ibft.block_period_seconds", cfg.IBFT.BlockPeriodSeconds)
	v.SetDefault("ibft.request_timeout_seconds", cfg.IBFT.RequestTimeoutSeconds)
	v.SetDefault("ibft.epoch_length", cfg.IBFT.EpochLength)
	v.SetDefault("ibft.block_validation", cfg.IBFT.BlockValidation)
	v.SetDefault("mempool.size", cfg.Mempool.Size)
	v.SetDefault("mempool.max_txs_bytes", cfg.Mempool.MaxTxsBytes)
	v.SetDefault("mempool.max_tx_bytes", cfg.Mempool.MaxTxBytes)
	return v
}

// LoadConfig reads home/config/config.toml, if present, over the defaults
// and validates the result.
func LoadConfig(v *viper.Viper, home string) (*Config, error) {
	v.SetConfigName(DefaultConfigName)
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if cfg.RootDir == "" {
		cfg.SetRoot(home)
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, errors.Wrap(err, "error in config file")
	}
	return cfg, nil
}

// WriteConfigFile writes cfg to its ConfigFile. The root dir is left out so
// the file stays valid when the home directory moves.
func WriteConfigFile(cfg *Config) error {
	file := cfg.ConfigFile()
	portable := *cfg
	portable.RootDir = ""
	v := NewViper(DefaultEnvPrefix, &portable)
	return errors.Wrapf(v.WriteConfigAs(file), "write %s", file)
}

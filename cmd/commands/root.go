package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/cli"
	tmflags "github.com/tendermint/tendermint/libs/cli/flags"
	"github.com/tendermint/tendermint/libs/log"

	cfg "ibft_node/config"
)

var (
	config = cfg.DefaultConfig()
	logger = log.NewTMLogger(log.NewSyncWriter(os.Stdout))
)

func init() {
	registerFlagsRootCmd(RootCmd)
}

func registerFlagsRootCmd(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log_level", config.LogLevel, "log level")
	cmd.PersistentFlags().String("chain_id", config.ChainID, "chain id")
}

// ParseConfig loads the config of the home directory given on the command
// line. Flags override the file and the environment.
func ParseConfig(cmd *cobra.Command) (*cfg.Config, error) {
	v := cfg.NewViper(cfg.DefaultEnvPrefix, cfg.DefaultConfig())
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	conf, err := cfg.LoadConfig(v, viper.GetString(cli.HomeFlag))
	if err != nil {
		return nil, err
	}
	conf.SetRoot(viper.GetString(cli.HomeFlag))
	return conf, nil
}

// RootCmd is the root command for the node.
var RootCmd = &cobra.Command{
	Use:   "ibft_node",
	Short: "IBFT consensus node",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if cmd.Name() == VersionCmd.Name() {
			return nil
		}

		config, err = ParseConfig(cmd)
		if err != nil {
			return err
		}

		if viper.GetBool(cli.TraceFlag) {
			logger = log.NewTracingLogger(logger)
		}
		logger, err = tmflags.ParseLogLevel(config.LogLevel, logger, cfg.DefaultConfig().LogLevel)
		if err != nil {
			return err
		}

		logger = logger.With("module", "main")
		return nil
	},
}

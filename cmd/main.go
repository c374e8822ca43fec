package main

import (
	"os"
	"path/filepath"

	"github.com/tendermint/tendermint/libs/cli"

	cmd "ibft_node/cmd/commands"
	cfg "ibft_node/config"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.AddCommand(
		cmd.InitFilesCmd,
		cmd.GenValidatorCmd,
		cmd.GenGenesisCmd,
		cmd.InitDBCmd,
		cmd.CheckRoundChangeCmd,
		cmd.VersionCmd,
		cli.NewCompletionCmd(rootCmd, true),
	)

	cmd := cli.PrepareBaseCmd(rootCmd, cfg.DefaultEnvPrefix, os.ExpandEnv(filepath.Join("$HOME", cfg.DefaultDirName)))
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

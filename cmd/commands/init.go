package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"
	tmrand "github.com/tendermint/tendermint/libs/rand"
	tmtime "github.com/tendermint/tendermint/types/time"

	cfg "ibft_node/config"
	"ibft_node/privval"
	"ibft_node/types"
)

// InitFilesCmd initialises a fresh node home: config file, validator key
// and a single validator genesis.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an IBFT node",
	RunE:  initFiles,
}

func initFiles(cmd *cobra.Command, args []string) error {
	return initFilesWithConfig(config)
}

func initFilesWithConfig(config *cfg.Config) error {
	if err := tmos.EnsureDir(filepath.Join(config.RootDir, cfg.DefaultConfigDir), 0700); err != nil {
		return err
	}
	if err := tmos.EnsureDir(config.DBDir(), 0700); err != nil {
		return err
	}

	configFile := config.ConfigFile()
	if tmos.FileExists(configFile) {
		logger.Info("Found config file", "path", configFile)
	} else {
		if err := cfg.WriteConfigFile(config); err != nil {
			return err
		}
		logger.Info("Generated config file", "path", configFile)
	}

	// private validator
	privValKeyFile := config.PrivValidatorKeyFile()
	if tmos.FileExists(privValKeyFile) {
		logger.Info("Found private validator", "keyFile", privValKeyFile)
	}
	pv, err := privval.LoadOrGenFilePV(privValKeyFile)
	if err != nil {
		return err
	}

	// genesis file
	genFile := config.GenesisFile()
	if tmos.FileExists(genFile) {
		logger.Info("Found genesis file", "path", genFile)
		return nil
	}

	chainID := config.ChainID
	if chainID == "" {
		chainID = fmt.Sprintf("test-chain-%v", tmrand.Str(6))
	}
	pubKey, err := pv.GetPubKey()
	if err != nil {
		return fmt.Errorf("can't get pubkey: %w", err)
	}
	genDoc := types.GenesisDoc{
		ChainID:     chainID,
		GenesisTime: tmtime.Now(),
		Validators: []types.GenesisValidator{{
			Address: types.GetAddress(pubKey),
			PubKey:  pubKey,
		}},
	}
	if err := genDoc.SaveAs(genFile); err != nil {
		return err
	}
	logger.Info("Generated genesis file", "path", genFile)

	return nil
}

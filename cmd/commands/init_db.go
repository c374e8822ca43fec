package commands

import (
	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"

	cfg "ibft_node/config"
	"ibft_node/store"
	"ibft_node/types"
)

var InitDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Store the genesis header and validators in the chain store",
	RunE:  initDB,
}

func openChainStore(config *cfg.Config) (*store.ChainStore, error) {
	if err := tmos.EnsureDir(config.DBDir(), 0700); err != nil {
		return nil, err
	}
	chainStore, err := store.NewChainStore(config.ChainStoreName(), store.BackendType(config.DBBackend), config.DBDir())
	if err != nil {
		return nil, err
	}
	chainStore.SetLogger(logger.With("module", "store"))
	return chainStore, nil
}

func initDB(cmd *cobra.Command, args []string) error {
	genDoc, err := types.GenesisDocFromFile(config.GenesisFile())
	if err != nil {
		return err
	}
	chainStore, err := openChainStore(config)
	if err != nil {
		return err
	}
	defer chainStore.Close()

	height, err := chainStore.Height()
	if err != nil {
		return err
	}
	if height >= 0 {
		logger.Info("Chain store already initialised", "height", height, "dir", config.DBDir())
		return nil
	}
	if err := chainStore.SaveGenesis(genDoc); err != nil {
		return err
	}
	logger.Info("Initialised chain store", "chain_id", genDoc.ChainID,
		"validators", len(genDoc.Validators), "dir", config.DBDir())
	return nil
}

package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"
	tmtime "github.com/tendermint/tendermint/types/time"

	"ibft_node/privval"
	"ibft_node/types"
)

var (
	chainID      string
	numVals      int
	secretPrefix string
	keysDir      string
)

// GenGenesisCmd writes a genesis file for a testnet whose validator keys
// are derived from secretPrefix and the validator index.
var GenGenesisCmd = &cobra.Command{
	Use:   "gen-genesis",
	Short: "Generate a genesis file for a testnet",
	RunE:  genGenesisFile,
}

func init() {
	GenGenesisCmd.Flags().StringVar(&chainID, "chain-id", "test-chain", "chain id of the testnet")
	GenGenesisCmd.Flags().IntVar(&numVals, "validators", 4, "number of validators")
	GenGenesisCmd.Flags().StringVar(&secretPrefix, "secret-prefix", "validator-",
		"validator i derives its key from secret-prefix followed by i")
	GenGenesisCmd.Flags().StringVar(&keysDir, "keys-dir", "",
		"also write every validator key to this directory")
}

func genGenesisFile(cmd *cobra.Command, args []string) error {
	genFile := config.GenesisFile()
	if tmos.FileExists(genFile) {
		logger.Info("Found genesis file", "path", genFile)
		return nil
	}
	if numVals <= 0 {
		return fmt.Errorf("need at least one validator, got %d", numVals)
	}
	if keysDir != "" {
		if err := tmos.EnsureDir(keysDir, 0700); err != nil {
			return err
		}
	}

	genDoc := types.GenesisDoc{
		ChainID:     chainID,
		GenesisTime: tmtime.Now(),
	}
	for i := 0; i < numVals; i++ {
		keyFile := ""
		if keysDir != "" {
			keyFile = filepath.Join(keysDir, fmt.Sprintf("validator-%d.json", i))
		}
		pv := privval.GenFilePVFromSecret(keyFile, []byte(fmt.Sprintf("%s%d", secretPrefix, i)))
		if keyFile != "" {
			if err := pv.Save(); err != nil {
				return err
			}
		}
		genDoc.Validators = append(genDoc.Validators, types.GenesisValidator{
			Address: pv.GetAddress(),
			PubKey:  pv.Key.PubKey,
			Name:    fmt.Sprintf("validator-%d", i),
		})
	}
	if err := genDoc.ValidateAndComplete(); err != nil {
		return err
	}

	if err := tmos.EnsureDir(filepath.Dir(genFile), 0700); err != nil {
		return err
	}
	if err := genDoc.SaveAs(genFile); err != nil {
		return err
	}
	logger.Info("Generated genesis file", "path", genFile, "validators", numVals)
	return nil
}

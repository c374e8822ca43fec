package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmjson "github.com/tendermint/tendermint/libs/json"

	"ibft_node/privval"
)

var secret string

// GenValidatorCmd generates a validator key pair and prints it as JSON.
var GenValidatorCmd = &cobra.Command{
	Use:   "gen-validator",
	Args:  cobra.NoArgs,
	Short: "Generate new validator keypair",
	RunE:  genValidator,
}

func init() {
	GenValidatorCmd.Flags().StringVar(&secret, "secret", "",
		"derive the key from this secret instead of generating a random one")
}

func genValidator(cmd *cobra.Command, args []string) error {
	pv := privval.GenFilePV("")
	if secret != "" {
		pv = privval.GenFilePVFromSecret("", []byte(secret))
	}
	jsbz, err := tmjson.MarshalIndent(pv.Key, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(jsbz))
	return nil
}

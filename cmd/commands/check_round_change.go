package commands

import (
	"fmt"
	"io/ioutil"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	tmjson "github.com/tendermint/tendermint/libs/json"

	"ibft_node/consensus"
	"ibft_node/consensus/validation"
	sm "ibft_node/state"
	"ibft_node/types"
)

var (
	targetHeight int64
	targetRound  int32
)

// CheckRoundChangeCmd validates a file of signed ROUND-CHANGE messages
// against the local chain store and reports what a proposer would carry
// into the target round.
var CheckRoundChangeCmd = &cobra.Command{
	Use:   "check-round-change [file]",
	Args:  cobra.ExactArgs(1),
	Short: "Validate ROUND-CHANGE messages and print the round change artifacts",
	RunE:  checkRoundChange,
}

func init() {
	CheckRoundChangeCmd.Flags().Int64Var(&targetHeight, "height", 0, "height of the target round")
	CheckRoundChangeCmd.Flags().Int32Var(&targetRound, "round", 1, "target round")
	_ = CheckRoundChangeCmd.MarkFlagRequired("height")
}

type roundChangeReport struct {
	Target           types.RoundIdentifier  `json:"target"`
	Messages         int                    `json:"messages"`
	Valid            []string               `json:"valid"`
	Rejected         []string               `json:"rejected"`
	Quorum           int                    `json:"quorum"`
	CertificateValid bool                   `json:"certificate_valid"`
	PreparedRound    *types.RoundIdentifier `json:"prepared_round,omitempty"`
	BlockHash        tmbytes.HexBytes       `json:"block_hash,omitempty"`
}

// setArtifacts records the block to carry and the round it was last
// prepared in, which may be later than the round it was built in.
func (r *roundChangeReport) setArtifacts(artifacts types.RoundChangeArtifacts) {
	if !artifacts.HasBlock() {
		return
	}
	r.BlockHash = artifacts.Block.Hash()
	if artifacts.Prepared != nil {
		round := artifacts.Prepared.PreparedRound()
		r.PreparedRound = &round
	}
}

func checkRoundChange(cmd *cobra.Command, args []string) error {
	bz, err := ioutil.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read round changes")
	}
	var msgs []*types.SignedPayload
	if err := tmjson.Unmarshal(bz, &msgs); err != nil {
		return errors.Wrapf(err, "decode round changes in %s", args[0])
	}

	chainStore, err := openChainStore(config)
	if err != nil {
		return err
	}
	defer chainStore.Close()

	target := types.NewRoundIdentifier(targetHeight, targetRound)
	if err := target.ValidateBasic(); err != nil {
		return err
	}
	parent, err := chainStore.LoadHeader(target.Sequence - 1)
	if err != nil {
		return err
	}

	proposers := consensus.NewRoundRobinProposerSelector()
	headers := sm.NewHeaderValidator(parent.ChainID, chainStore, proposers)
	headers.SetLogger(logger.With("module", "state"))
	var blocks validation.BlockValidator = headers
	if mode := config.IBFT.ValidationMode(); mode != validation.FullValidation {
		blocks = sm.FixedModeValidator{BlockValidator: headers, Mode: mode}
	}
	factory := validation.NewMessageValidatorFactory(proposers, chainStore, blocks)
	factory.SetLogger(logger.With("module", "validation"))

	view, err := factory.RoundView(target, parent)
	if err != nil {
		return err
	}
	quorum, err := view.Validators.QuorumSize()
	if err != nil {
		return err
	}

	report := roundChangeReport{Target: target, Messages: len(msgs), Quorum: quorum}
	rcv := factory.CreateRoundChangeValidator()
	var valid []*types.SignedPayload
	for i, msg := range msgs {
		ok, err := rcv.ValidateRoundChange(view, msg)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("#%d %v", i, msg.Author())
		if !ok {
			report.Rejected = append(report.Rejected, label)
			continue
		}
		report.Valid = append(report.Valid, label)
		valid = append(valid, msg)
	}

	cert := types.RoundChangeCertificate{RoundChanges: valid}
	report.CertificateValid, err = factory.CreateRoundChangeCertificateValidator().ValidateCertificate(view, cert)
	if err != nil {
		return err
	}
	if report.CertificateValid {
		report.setArtifacts(types.ExtractRoundChangeArtifacts(valid))
	}

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

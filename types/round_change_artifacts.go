package types

// RoundChangeArtifacts is what a proposer needs to open a new round after
// collecting ROUND-CHANGE messages: the block to re-propose, if any, and
// the certificate justifying the round jump. Prepared is the prepared
// certificate Block was taken from.
type RoundChangeArtifacts struct {
	Block       *Block
	Prepared    *PreparedRoundArtifacts
	Certificate RoundChangeCertificate
}

// HasBlock reports whether a prepared block must be carried forward.
func (a RoundChangeArtifacts) HasBlock() bool {
	return a.Block != nil
}

// ExtractRoundChangeArtifacts picks the prepared block from the ROUND-CHANGE
// whose prepared certificate has the highest round. Equal highest rounds are
// broken by the lowest author address. The certificate holds every input
// message in input order.
//
// The messages must already have been validated individually; nothing is
// rejected here.
func ExtractRoundChangeArtifacts(roundChanges []*SignedPayload) RoundChangeArtifacts {
	var best *SignedPayload
	for _, rc := range roundChanges {
		if rc.Type() != RoundChangeMessage {
			continue
		}
		prepared := rc.Payload.RoundChange.Prepared
		if prepared == nil || prepared.Proposal == nil {
			continue
		}
		if best == nil || preparedLater(rc, best) {
			best = rc
		}
	}

	changes := make([]*SignedPayload, len(roundChanges))
	copy(changes, roundChanges)

	artifacts := RoundChangeArtifacts{
		Certificate: RoundChangeCertificate{RoundChanges: changes},
	}
	if best != nil {
		artifacts.Block = best.ProposedBlock()
		artifacts.Prepared = best.Payload.RoundChange.Prepared
	}
	return artifacts
}

// preparedLater reports whether a carries a better prepared certificate
// than b. Both must carry one.
func preparedLater(a, b *SignedPayload) bool {
	ra := a.Payload.RoundChange.Prepared.PreparedRound().Round
	rb := b.Payload.RoundChange.Prepared.PreparedRound().Round
	if ra != rb {
		return ra > rb
	}
	return a.Author().Compare(b.Author()) < 0
}

package consensus

//
//                 +-------------------------------------------------+
//                 v                                                 |
//           +-----------+  PROPOSAL from the round's proposer       |
// new   --> |  Propose  +-----------------------------+             |
// height    +-----+-----+                             v             |
//                 |                           +-----------+         |
//                 | ROUND-CHANGE quorum       |  Prepare  |         |
//                 | for a later round         +-----+-----+         |
//                 v                                 | quorum-1      |
//         +---------------+                         | PREPAREs      |
//         | NEW-ROUND     |                         v               |
//         | (proposer     |                   +-----------+         |
//         |  of round r)  +-----------------> |  Commit   |         |
//         +---------------+  embedded         +-----+-----+         |
//                            PROPOSAL               | quorum        |
//                                                   | COMMITs       |
//                                                   v               |
//                                            +-------------+        |
//                                            |  Committed  +--------+
//                                            +-------------+
//                                              seals handed to the
//                                              block executor

// ConsensusState drives one height:
//	- RoundState - the tally of the current round: the accepted proposal,
//	  prepares and commits keyed by signer
//	- RoundChangeSet - ROUND-CHANGE messages for rounds above the current one
//	- MessageValidatorFactory - every message is judged before it touches
//	  either tally
//	- EventSwitch - listeners learn about prepared, committed and
//	  round-change quorums; round timers and the block executor live there

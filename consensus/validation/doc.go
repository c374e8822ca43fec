/*
Package validation decides whether IBFT consensus messages are acceptable.

Every entry point takes a RoundView describing the round under validation
and returns (bool, error). false with a nil error is an ordinary rejection
of an invalid or stale message and is logged at debug level. A non-nil
error means the call could not be judged: the RoundView has no validators
or no parent header, or the BlockValidator failed. Errors from the
BlockValidator are returned as they are.

Validators never modify their inputs and keep nothing between calls, so a
single instance can judge messages of many heights from many goroutines.
Duplicate detection is the caller's job and is wired in through
RoundView.Seen.

	factory := validation.NewMessageValidatorFactory(proposers, chainStore, headerValidator)
	view, err := factory.RoundView(types.NewRoundIdentifier(h, r), parent)
	ok, err := factory.CreateMessageValidator().ValidateProposal(view, msg)
*/
package validation

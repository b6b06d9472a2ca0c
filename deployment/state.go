package deployment

// State describes the progress of a single deployment. Deployments move strictly forward through the states in
// declaration order, or to Failed from any state before Confirmed.
type State int

const (
	// NotStarted indicates no network operation has been performed yet.
	NotStarted State = iota
	// ProviderReady indicates the node connection and signer are established.
	ProviderReady
	// AccountResolved indicates the deployer account was derived.
	AccountResolved
	// TxSubmitted indicates the contract creation transaction was accepted by the node.
	TxSubmitted
	// Confirmed indicates the transaction was mined successfully and the contract exists.
	Confirmed
	// Failed indicates a step failed. No further steps are taken.
	Failed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case ProviderReady:
		return "provider ready"
	case AccountResolved:
		return "account resolved"
	case TxSubmitted:
		return "transaction submitted"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal indicates whether no further transitions can occur from the state.
func (s State) IsTerminal() bool {
	return s == Confirmed || s == Failed
}

package pipeline

// State holds the shared results of deployment phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Provisioning results
	Kubeconfig []byte

	// Foundation results
	StoreAddr     string   // secret store API address
	IssuerCAChain []string // PEM chain published by the in-cluster issuer

	// Advisory findings collected across phases. These are reported at
	// the end of the run but never abort it.
	Advisories []string
}

// NewState creates an empty deployment state.
func NewState() *State {
	return &State{}
}

package runner

// State is a step of a migration run.
type State string

// Run states, in the order a run can visit them.
const (
	StateStart           State = "start"
	StateLegacyCheck     State = "legacy_check"
	StateBootstrapLegacy State = "bootstrap_legacy"
	StateTracked         State = "tracked"
	StateComputePending  State = "compute_pending"
	StateBackup          State = "backup"
	StateApplyLoop       State = "apply_loop"
	StateVerify          State = "verify"
	StateDone            State = "done"
	StateFatal           State = "fatal_error"
)

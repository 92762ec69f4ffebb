package scanner

type State string

const (
	StateIdle          State = "IDLE"
	StateComputeWindow State = "COMPUTE_WINDOW"
	StateFetching      State = "FETCHING"
	StateAggregating   State = "AGGREGATING"
	StateCommitting    State = "COMMITTING"
	StateFailed        State = "FAILED"
)

const (
	cycleSuccess = "success"
	cycleNoop    = "noop"
	cycleFailed  = "failed"
)

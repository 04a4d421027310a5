package agent

// Dispatch statuses. A skipped dispatch means the required integration had
// no credentials; it is reported rather than silently dropped.
const (
	DispatchOK      = "ok"
	DispatchSkipped = "skipped_missing_integration"
	DispatchFailed  = "failed"
)

// DispatchResult records the outcome of acting on one detected intent or
// finalization step.
type DispatchResult struct {
	Target string `json:"target"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func dispatchOK(target, detail string) DispatchResult {
	return DispatchResult{Target: target, Status: DispatchOK, Detail: detail}
}

func dispatchSkipped(target string) DispatchResult {
	return DispatchResult{Target: target, Status: DispatchSkipped}
}

func dispatchFailed(target string, err error) DispatchResult {
	return DispatchResult{Target: target, Status: DispatchFailed, Detail: err.Error()}
}

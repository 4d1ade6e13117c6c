package adminapi

import "github.com/evan-idocoding/rtobj/rt/kernel"

type healthResponse struct {
	Status string `json:"status"`
	Tick   uint64 `json:"tick"`
}

type errorResponse struct {
	Error string `json:"error"`
	Name  string `json:"name,omitempty"`
}

type taskStatus struct {
	Handle     uint64 `json:"handle"`
	Name       string `json:"name"`
	Priority   int    `json:"priority"`
	StackDepth int    `json:"stack_depth"`
	State      string `json:"state"`
	Runs       uint64 `json:"runs"`
	WakeTick   uint64 `json:"wake_tick,omitempty"`
	LastPanic  string `json:"last_panic,omitempty"`
}

type snapshotResponse struct {
	Tick     uint64       `json:"tick"`
	Running  uint64       `json:"running"`
	Created  uint64       `json:"created"`
	Deleted  uint64       `json:"deleted"`
	HeapUsed int          `json:"heap_used"`
	HeapSize int          `json:"heap_size"`
	Tasks    []taskStatus `json:"tasks"`
}

// objectStatus describes a task object; Kernel is nil when the object holds no live handle.
// Priority is the requested one, Kernel.Priority the effective one.
type objectStatus struct {
	Name       string      `json:"name"`
	State      string      `json:"state"`
	Priority   int         `json:"requested_priority"`
	StackDepth int         `json:"stack_depth"`
	Kernel     *taskStatus `json:"kernel,omitempty"`
}

type closeResponse struct {
	Closed  bool   `json:"closed"`
	Deleted bool   `json:"deleted"`
	Result  string `json:"result"`
}

func fromStatus(st kernel.Status) taskStatus {
	return taskStatus{
		Handle:     uint64(st.Handle),
		Name:       st.Name,
		Priority:   int(st.Priority),
		StackDepth: st.StackDepth,
		State:      st.State.String(),
		Runs:       st.Runs,
		WakeTick:   st.WakeTick,
		LastPanic:  st.LastPanic,
	}
}

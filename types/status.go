package types

// Link is the state reported for a capability (retained).
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"`
}

// ---- Wireless link (retained on wireless/link) ----

type LinkState string

const (
	LinkAdvertising LinkState = "advertising"
	LinkConnected   LinkState = "connected"
	LinkRejected    LinkState = "rejected"
)

type WirelessLink struct {
	State LinkState `json:"state"`
	Peer  PeerID    `json:"peer"`
	TS    int64     `json:"ts_ms"`
}

// ---- Tasks (retained on system/task/<name>) ----

type TaskState string

const (
	TaskRunning    TaskState = "running"
	TaskRestarting TaskState = "restarting"
	TaskFailed     TaskState = "failed"
	TaskStopped    TaskState = "stopped"
)

type TaskStatus struct {
	State    TaskState `json:"state"`
	Restarts int       `json:"restarts"`
	Error    string    `json:"error,omitempty"`
	TS       int64     `json:"ts_ms"`
}

// Heartbeat is published on system/heartbeat.
type Heartbeat struct {
	UptimeS   int64      `json:"uptime_s"`
	HeapAlloc uint64     `json:"heap_alloc"`
	HeapSys   uint64     `json:"heap_sys"`
	Mallocs   uint64     `json:"mallocs"`
	Owner     OwnerState `json:"owner"`
}

// Generic replies
type OKReply struct {
	OK bool `json:"ok"`
}
type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

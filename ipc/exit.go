package ipc

// Worker process exit codes. Both sides of the boundary speak them: the
// worker picks one as it dies, and the parent treats it as authoritative
// when classifying the task outcome (the result frame only supplies
// detail).
const (
	// ExitOK means the task completed and a valid result frame was emitted.
	ExitOK = 0
	// ExitTaskError means the task failed and a result frame describes why.
	ExitTaskError = 1
	// ExitCrash means the worker died without a terminal result frame.
	ExitCrash = 2
	// ExitInvalidInput means the worker rejected the task document before
	// doing any work: unreadable JSON, unknown task kind, or a protocol
	// version it does not speak.
	ExitInvalidInput = 3
)

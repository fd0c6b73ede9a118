package log

// FieldComponent tags every line with the subsystem that emitted it.
const FieldComponent = "component"

// Component names used by the binaries.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)

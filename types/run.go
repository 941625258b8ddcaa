package types

import "errors"

// RunMeta identifies one invocation of the tool. Every log line, journal
// entry, and completion notification carries it, so a dump file on disk can
// always be traced back to the run and seed that produced it.
type RunMeta struct {
	// RunID is a fresh UUID per invocation.
	RunID string `json:"run_id" msgpack:"run_id"`
	// Seed is the user-supplied or auto-derived base seed of the run.
	Seed int `json:"seed" msgpack:"seed"`
}

// Validate checks the run identity before any work starts.
func (m *RunMeta) Validate() error {
	if m == nil || m.RunID == "" {
		return errors.New("run metadata missing run_id")
	}
	return nil
}

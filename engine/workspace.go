package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gunwale-io/bailer/types"
)

// Channel is one counting channel of a workspace: an observed event count
// and the expected background and signal yields behind it.
type Channel struct {
	Name string `yaml:"name"`
	// Observed is the measured event count.
	Observed float64 `yaml:"observed"`
	// Background is the expected background yield. Must be positive.
	Background float64 `yaml:"background"`
	// BackgroundSigma is the absolute uncertainty on the background yield,
	// fluctuated per toy by the hybrid calculator. Zero means fixed.
	BackgroundSigma float64 `yaml:"background_sigma"`
	// Signal is the expected signal yield at unit signal strength.
	Signal float64 `yaml:"signal"`
}

// Workspace is a named counting model loaded from a workspace file.
type Workspace struct {
	Name     string
	POI      string
	Channels []Channel
}

type workspaceSpec struct {
	POI      string    `yaml:"poi"`
	Channels []Channel `yaml:"channels"`
}

type workspaceFile struct {
	Workspaces map[string]workspaceSpec `yaml:"workspaces"`
}

// LoadError reports a workspace that could not be opened or does not
// contain what the task asked for. Workers log it before failing the task
// so the operator sees the offending path without digging through frames.
type LoadError struct {
	Path   string
	Detail string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workspace %s: %s: %v", e.Path, e.Detail, e.Err)
	}
	return fmt.Sprintf("workspace %s: %s", e.Path, e.Detail)
}

func (e *LoadError) Unwrap() error { return e.Err }

// OpenWorkspace loads the named workspace from a workspace file and checks
// that the model is usable: at least one channel, positive backgrounds, a
// non-negative signal somewhere to scan over.
func OpenWorkspace(path, name string) (*Workspace, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Detail: "cannot read file", Err: err}
	}
	var file workspaceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, &LoadError{Path: path, Detail: "cannot parse file", Err: err}
	}
	spec, ok := file.Workspaces[name]
	if !ok {
		return nil, &LoadError{Path: path, Detail: fmt.Sprintf("no workspace named %q", name)}
	}
	if spec.POI == "" {
		return nil, &LoadError{Path: path, Detail: fmt.Sprintf("workspace %q declares no parameter of interest", name)}
	}
	if len(spec.Channels) == 0 {
		return nil, &LoadError{Path: path, Detail: fmt.Sprintf("workspace %q has no channels", name)}
	}
	signal := 0.0
	for _, ch := range spec.Channels {
		if ch.Background <= 0 {
			return nil, &LoadError{Path: path, Detail: fmt.Sprintf("channel %q has non-positive background", ch.Name)}
		}
		if ch.Observed < 0 || ch.Signal < 0 || ch.BackgroundSigma < 0 {
			return nil, &LoadError{Path: path, Detail: fmt.Sprintf("channel %q has a negative yield", ch.Name)}
		}
		signal += ch.Signal
	}
	if signal == 0 {
		return nil, &LoadError{Path: path, Detail: fmt.Sprintf("workspace %q has no signal yield", name)}
	}
	return &Workspace{Name: name, POI: spec.POI, Channels: spec.Channels}, nil
}

// OpenRef opens the workspace a task references and verifies the parameter
// of interest matches what the model declares.
func OpenRef(ref *types.WorkspaceRef) (*Workspace, error) {
	ws, err := OpenWorkspace(ref.File, ref.Workspace)
	if err != nil {
		return nil, err
	}
	if ref.POI != "" && ref.POI != ws.POI {
		return nil, &LoadError{
			Path:   ref.File,
			Detail: fmt.Sprintf("workspace %q has parameter of interest %q, not %q", ref.Workspace, ws.POI, ref.POI),
		}
	}
	return ws, nil
}

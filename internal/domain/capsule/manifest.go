package capsule

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Runner identifies which compile path an artifact takes.
type Runner string

const (
	RunnerHTML     Runner = "html"
	RunnerReactJSX Runner = "react-jsx"
)

// Capabilities declares the manifest's requested capability surface:
// outbound network hosts, storage, and worker usage.
type Capabilities struct {
	Net     []string `json:"net,omitempty"`
	Storage bool     `json:"storage,omitempty"`
	Workers bool     `json:"workers,omitempty"`
}

// ParamSpec is one declared recipe parameter: the type
// drives what validation/clamping a recipe value gets before it is stored.
type ParamSpec struct {
	Key       string   `json:"key"`
	Type      string   `json:"type"` // "number", "select", "text", or "color"
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Options   []string `json:"options,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
}

// ManifestVersion is the manifest's schema version. Authors write it as a
// string ("1.0"), but older bundles carry a bare number, so unmarshalling
// tolerates both forms.
type ManifestVersion string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (v *ManifestVersion) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = ManifestVersion(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("version must be a string or number: %w", err)
	}

	*v = ManifestVersion(n.String())

	return nil
}

// Manifest is the parsed, validated `manifest.json` of a capsule bundle.
type Manifest struct {
	Version      ManifestVersion `json:"version"`
	Runner       string          `json:"runner"`
	Entry        string          `json:"entry"`
	Params       []ParamSpec     `json:"params,omitempty"`
	Capabilities Capabilities    `json:"capabilities,omitempty"`
}

// ValidationIssue is a single structured path:message validation failure.
type ValidationIssue struct {
	Path    string
	Message string
}

func (i ValidationIssue) Error() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// ValidateManifest checks the manifest's schema and returns every issue
// found (not just the first), so callers can report the whole set at once.
func ValidateManifest(m Manifest) []ValidationIssue {
	var issues []ValidationIssue

	if strings.TrimSpace(string(m.Version)) == "" {
		issues = append(issues, ValidationIssue{Path: "version", Message: "must not be empty"})
	}

	if strings.TrimSpace(m.Entry) == "" {
		issues = append(issues, ValidationIssue{Path: "entry", Message: "must not be empty"})
	}

	runner, err := ResolveRunner(m.Runner, m.Entry)
	if err != nil {
		issues = append(issues, ValidationIssue{Path: "runner", Message: err.Error()})
	} else {
		_ = runner
	}

	return issues
}

// ResolveRunner resolves the runtime type from an explicit runner name, or
// falls back to the entry file's extension.
func ResolveRunner(runner, entry string) (Runner, error) {
	switch Runner(runner) {
	case RunnerHTML:
		return RunnerHTML, nil
	case RunnerReactJSX:
		return RunnerReactJSX, nil
	}

	switch path.Ext(entry) {
	case ".html":
		return RunnerHTML, nil
	case ".js", ".jsx", ".ts", ".tsx":
		return RunnerReactJSX, nil
	default:
		return "", fmt.Errorf("unsupported runner %q for entry %q", runner, entry)
	}
}

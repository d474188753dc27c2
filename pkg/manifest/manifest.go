// Package manifest loads the generated dashboard manifest: which widgets to
// show and in what order. The manifest is optional. A missing file is a normal
// outcome that yields the built-in default layout.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// FileName is the conventional manifest file name inside the dot-dir.
const FileName = "dashboard.manifest.json"

// CurrentVersion is the manifest schema version this package writes.
const CurrentVersion = 1

// ErrMalformed is returned when a manifest file exists but cannot be decoded.
var ErrMalformed = errors.New("malformed manifest")

// WidgetKind selects the component that renders a widget.
type WidgetKind int

const (
	WidgetUnknown WidgetKind = iota
	WidgetThoughts
	WidgetScore
	WidgetAgent
	WidgetBrainState
	WidgetHealth
	WidgetFrames
)

var widgetKinds = map[string]WidgetKind{
	"thoughts":    WidgetThoughts,
	"score":       WidgetScore,
	"agent":       WidgetAgent,
	"brain_state": WidgetBrainState,
	"health":      WidgetHealth,
	"frames":      WidgetFrames,
}

var widgetNames = func() map[WidgetKind]string {
	m := make(map[WidgetKind]string, len(widgetKinds))
	for name, k := range widgetKinds {
		m[k] = name
	}
	return m
}()

// ParseWidgetKind maps a widget component name to its kind. Unrecognized names
// are WidgetUnknown, which renders as a plain frame dump.
func ParseWidgetKind(name string) WidgetKind {
	if k, ok := widgetKinds[name]; ok {
		return k
	}
	return WidgetUnknown
}

func (k WidgetKind) String() string {
	if name, ok := widgetNames[k]; ok {
		return name
	}
	return "unknown"
}

// Widget is one dashboard panel.
type Widget struct {
	ID        string `json:"id"`
	Component string `json:"component"`
	Title     string `json:"title,omitempty"`

	// Limit caps list widgets. Zero means the store capacity.
	Limit int `json:"limit,omitempty"`
}

// Kind resolves the widget component.
func (w Widget) Kind() WidgetKind {
	return ParseWidgetKind(w.Component)
}

// Manifest is the dashboard layout.
type Manifest struct {
	Version     int       `json:"version"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at,omitzero"`
	Widgets     []Widget  `json:"widgets"`
}

// Default is the layout used when no manifest is present.
func Default() Manifest {
	return Manifest{
		Version: CurrentVersion,
		Title:   "brainstream",
		Widgets: []Widget{
			{ID: "score", Component: "score", Title: "Trinity score"},
			{ID: "agent", Component: "agent", Title: "Active agent"},
			{ID: "state", Component: "brain_state", Title: "Brain state"},
			{ID: "thoughts", Component: "thoughts", Title: "Thoughts", Limit: 10},
			{ID: "health", Component: "health", Title: "Brain health"},
		},
	}
}

// Result is the outcome of LoadOrDefault.
type Result struct {
	Manifest Manifest `json:"manifest"`

	// Found is false when the default layout was used because no file exists.
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// LoadOrDefault reads the manifest at path. An empty path or a missing file
// returns Default with Found false. A file that exists but does not decode is
// an error.
func LoadOrDefault(path string) (Result, error) {
	if path == "" {
		return Result{Manifest: Default()}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{Manifest: Default(), Path: path}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return Result{Manifest: m, Found: true, Path: path}, nil
}

// Parse decodes manifest JSON. Missing fields are filled from Default.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	def := Default()
	if m.Version == 0 {
		m.Version = CurrentVersion
	}
	if m.Title == "" {
		m.Title = def.Title
	}
	if m.Widgets == nil {
		m.Widgets = def.Widgets
	}

	seen := make(map[string]struct{}, len(m.Widgets))
	for i, w := range m.Widgets {
		if w.ID == "" {
			return Manifest{}, fmt.Errorf("%w: widget %d has no id", ErrMalformed, i)
		}
		if _, dup := seen[w.ID]; dup {
			return Manifest{}, fmt.Errorf("%w: duplicate widget id %q", ErrMalformed, w.ID)
		}
		seen[w.ID] = struct{}{}
	}

	return m, nil
}

package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the version tag written into persisted documents.
const FormatVersion = "1.0"

var (
	// ErrMalformed is returned when a persisted document lacks required fields.
	ErrMalformed = errors.New("patch: malformed document")
	// ErrUnsupportedVersion is returned for documents of an unknown format major version.
	ErrUnsupportedVersion = errors.New("patch: unsupported format version")
)

// Document is the persisted form of a graph: nodes, connections, tempo and
// a format version tag. A zero BPM means the document carries no tempo.
type Document struct {
	Version     string       `json:"version"     yaml:"version"`
	BPM         float64      `json:"bpm"         yaml:"bpm"`
	Nodes       []Node       `json:"nodes"       yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// rawDocument distinguishes absent arrays from empty ones.
type rawDocument struct {
	Version     string        `json:"version"     yaml:"version"`
	BPM         float64       `json:"bpm"         yaml:"bpm"`
	Nodes       *[]Node       `json:"nodes"       yaml:"nodes"`
	Connections *[]Connection `json:"connections" yaml:"connections"`
}

// NewDocument wraps a graph and tempo into a document of the current format.
func NewDocument(g Graph, bpm float64) *Document {
	g = g.Clone()
	return &Document{
		Version:     FormatVersion,
		BPM:         bpm,
		Nodes:       g.Nodes,
		Connections: g.Connections,
	}
}

// Graph returns the graph described by d.
func (d *Document) Graph() Graph {
	return Graph{Nodes: d.Nodes, Connections: d.Connections}.Clone()
}

// LoadJSON decodes and validates a JSON document.
func LoadJSON(r io.Reader) (*Document, error) {
	var raw rawDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", ErrMalformed, err)
	}
	return raw.document()
}

// LoadYAML decodes and validates a YAML document.
func LoadYAML(r io.Reader) (*Document, error) {
	var raw rawDocument
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid yaml: %w", ErrMalformed, err)
	}
	return raw.document()
}

// Load reads a document from path, choosing the codec by file extension.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patch: open %s: %w", path, err)
	}
	defer f.Close()

	if isYAML(path) {
		return LoadYAML(f)
	}
	return LoadJSON(f)
}

// Decode parses data as JSON or YAML, whichever it looks like.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return LoadJSON(bytes.NewReader(data))
	}
	return LoadYAML(bytes.NewReader(data))
}

func (raw rawDocument) document() (*Document, error) {
	if raw.Nodes == nil {
		return nil, fmt.Errorf("%w: missing nodes", ErrMalformed)
	}
	if raw.Connections == nil {
		return nil, fmt.Errorf("%w: missing connections", ErrMalformed)
	}

	d := &Document{
		Version:     raw.Version,
		BPM:         raw.BPM,
		Nodes:       *raw.Nodes,
		Connections: *raw.Connections,
	}
	if d.Version == "" {
		d.Version = FormatVersion
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the structural requirements of a persisted document.
// Unknown kinds and dangling connections are accepted: the engine skips
// them at reconciliation time.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrMalformed)
	}
	if v := d.Version; v != "" && v != "1" && !strings.HasPrefix(v, "1.") {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	if d.BPM < 0 || math.IsNaN(d.BPM) || math.IsInf(d.BPM, 0) {
		return fmt.Errorf("%w: invalid bpm %v", ErrMalformed, d.BPM)
	}

	seen := make(map[string]struct{}, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node %d has no id", ErrMalformed, i)
		}
		if n.Kind == "" {
			return fmt.Errorf("%w: node %q has no type", ErrMalformed, n.ID)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformed, n.ID)
		}
		seen[n.ID] = struct{}{}
	}

	for i, c := range d.Connections {
		if c.ID == "" {
			return fmt.Errorf("%w: connection %d has no id", ErrMalformed, i)
		}
		if c.Source == "" || c.Target == "" {
			return fmt.Errorf("%w: connection %q needs source and target", ErrMalformed, c.ID)
		}
	}
	return nil
}

// WriteJSON encodes d as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d.normalized()); err != nil {
		return fmt.Errorf("patch: encode json: %w", err)
	}
	return nil
}

// WriteYAML encodes d as YAML.
func (d *Document) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d.normalized()); err != nil {
		return fmt.Errorf("patch: encode yaml: %w", err)
	}
	return enc.Close()
}

// Save writes d to path, choosing the codec by file extension.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer

	var err error
	if isYAML(path) {
		err = d.WriteYAML(&buf)
	} else {
		err = d.WriteJSON(&buf)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("patch: write %s: %w", path, err)
	}
	return nil
}

// normalized fills the version tag and replaces nil arrays so that the
// written document always satisfies LoadJSON.
func (d *Document) normalized() *Document {
	out := *d
	if out.Version == "" {
		out.Version = FormatVersion
	}
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	if out.Connections == nil {
		out.Connections = []Connection{}
	}
	return &out
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

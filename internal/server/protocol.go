package server

import (
	"encoding/json"

	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/patch"
)

// Operation names accepted on the control channel.
const (
	OpReconcile    = "reconcile"
	OpLoad         = "load"
	OpStart        = "start"
	OpStop         = "stop"
	OpTempo        = "tempo"
	OpWaveform     = "waveform"
	OpSpectrum     = "spectrum"
	OpCaptureStart = "capture-start"
	OpCaptureStop  = "capture-stop"
	OpStatus       = "status"
	OpSave         = "save"
	OpOpen         = "open"
	OpList         = "list"
)

// Server-initiated messages.
const (
	MsgHello = "hello"
	MsgStep  = "step"
)

// Request is one client message. ID is echoed in the reply so a client can
// match responses to requests.
type Request struct {
	ID       string          `json:"id,omitempty"`
	Op       string          `json:"op"`
	Graph    *patch.Graph    `json:"graph,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
	BPM      float64         `json:"bpm,omitempty"`
	Node     string          `json:"node,omitempty"`
	Name     string          `json:"name,omitempty"`
}

// Response is a reply to a Request or a server-initiated message.
type Response struct {
	ID      string `json:"id,omitempty"`
	Op      string `json:"op"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Session string `json:"session,omitempty"`

	Report   *ReportView `json:"report,omitempty"`
	Status   *StatusView `json:"status,omitempty"`
	Waveform []float32   `json:"waveform,omitempty"`
	Spectrum []float64   `json:"spectrum,omitempty"`
	Capture  []byte      `json:"capture,omitempty"` // WAV, base64 on the wire
	Names    []string    `json:"names,omitempty"`
	Step     *int        `json:"step,omitempty"`
}

// ReportView is the wire form of engine.Report.
type ReportView struct {
	Created     []string          `json:"created,omitempty"`
	Removed     []string          `json:"removed,omitempty"`
	Rebuilt     []string          `json:"rebuilt,omitempty"`
	Failed      map[string]string `json:"failed,omitempty"`
	ParamErrors map[string]string `json:"paramErrors,omitempty"` //nolint:tagliatelle
	Edges       int               `json:"edges"`
	EdgeErrors  []string          `json:"edgeErrors,omitempty"` //nolint:tagliatelle
}

// StatusView is the wire form of engine.Status.
type StatusView struct {
	Graph   patch.Graph `json:"graph"`
	Live    []string    `json:"live"`
	Running bool        `json:"running"`
	Tempo   float64     `json:"tempo"`
	Ticks   int64       `json:"ticks"`
	Step    int         `json:"step"`
}

func reportView(r engine.Report) *ReportView {
	v := &ReportView{
		Created: r.Created,
		Removed: r.Removed,
		Rebuilt: r.Rebuilt,
		Edges:   r.Edges,
	}
	v.Failed = errorMap(r.Failed)
	v.ParamErrors = errorMap(r.ParamErrors)
	for _, err := range r.EdgeErrors {
		v.EdgeErrors = append(v.EdgeErrors, err.Error())
	}
	return v
}

func errorMap(m map[string]error) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, err := range m {
		out[k] = err.Error()
	}
	return out
}

func statusView(s engine.Status) *StatusView {
	if s.Graph.Nodes == nil {
		s.Graph.Nodes = []patch.Node{}
	}
	if s.Graph.Connections == nil {
		s.Graph.Connections = []patch.Connection{}
	}
	if s.Live == nil {
		s.Live = []string{}
	}
	return &StatusView{
		Graph:   s.Graph,
		Live:    s.Live,
		Running: s.Running,
		Tempo:   s.Tempo,
		Ticks:   s.Ticks,
		Step:    s.Step,
	}
}

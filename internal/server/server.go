// Package server exposes an engine to an editor over a WebSocket control
// channel. Every client operation is serialised through one mutex, so the
// engine sees a single writer however many editors are attached.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/patch"
)

// ErrNoLibrary is returned for save and open when no library is configured.
var ErrNoLibrary = errors.New("server: no patch library")

// ErrUnknownOp is returned for a request with an unrecognised op.
var ErrUnknownOp = errors.New("server: unknown op")

// Engine is the engine surface the server drives. *engine.Engine
// implements it.
type Engine interface {
	Reconcile(g patch.Graph) engine.Report
	Load(doc *patch.Document) (engine.Report, error)
	Start(ctx context.Context) error
	Stop()
	SetTempo(bpm float64) error
	Tempo() float64
	StartCapture(ctx context.Context) error
	StopCapture() ([]byte, error)
	ReadWaveform(id string) []float32
	ReadSpectrum(id string) []float64
	Snapshot() engine.Status
}

// Library stores named patches. *library.Store implements it.
type Library interface {
	Put(name string, doc *patch.Document) error
	Get(name string) (*patch.Document, error)
	List() ([]string, error)
}

// Server handles editor connections.
type Server struct {
	eng Engine
	lib Library
	log *slog.Logger

	upgrader websocket.Upgrader

	mu sync.Mutex // serialises engine operations

	sessMu   sync.Mutex
	sessions map[string]chan Response
}

// Option configures a Server.
type Option func(*Server)

// WithLibrary enables the save, open and list operations.
func WithLibrary(lib Library) Option {
	return func(s *Server) { s.lib = lib }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Server driving eng.
func New(eng Engine, opts ...Option) *Server {
	s := &Server{
		eng:      eng,
		log:      slog.Default(),
		sessions: make(map[string]chan Response),
		upgrader: websocket.Upgrader{
			// The editor is served from a different origin in development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes: the control channel at /ws and a
// liveness probe at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// NotifyStep pushes the current sequencer step to every session. It never
// blocks: a session whose queue is full misses the update. It is safe to
// call on a nil Server.
func (s *Server) NotifyStep(step int) {
	if s == nil {
		return
	}
	s.broadcast(Response{Op: MsgStep, OK: true, Step: &step})
}

func (s *Server) broadcast(msg Response) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	for id, out := range s.sessions {
		select {
		case out <- msg:
		default:
			s.log.Debug("session queue full", "session", id, "op", msg.Op)
		}
	}
}

func (s *Server) register() (string, chan Response) {
	id := uuid.NewString()
	out := make(chan Response, 64)
	s.sessMu.Lock()
	s.sessions[id] = out
	s.sessMu.Unlock()
	return id, out
}

func (s *Server) unregister(id string) {
	s.sessMu.Lock()
	delete(s.sessions, id)
	s.sessMu.Unlock()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "error", err)
		return
	}
	defer c.Close()

	id, out := s.register()
	defer s.unregister(id)
	log := s.log.With("session", id)
	log.Info("editor connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	defer close(done)
	writerDone := make(chan struct{})
	go s.writeLoop(c, out, done, writerDone, log)

	send := func(msg Response) bool {
		select {
		case out <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	send(Response{Op: MsgHello, OK: true, Session: id})

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read", "error", err)
			}
			log.Info("editor disconnected")
			return
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			if !send(Response{Op: "error", Error: fmt.Sprintf("can't parse: %v", err)}) {
				return
			}
			continue
		}
		if !send(s.Do(r.Context(), req)) {
			return
		}
	}
}

// writeLoop is the only writer on c. On a write error it closes c so the
// read loop unblocks.
func (s *Server) writeLoop(c *websocket.Conn, out <-chan Response, done <-chan struct{}, writerDone chan<- struct{}, log *slog.Logger) {
	defer close(writerDone)
	for {
		select {
		case <-done:
			return
		case msg := <-out:
			if err := c.WriteJSON(msg); err != nil {
				log.Debug("websocket write", "op", msg.Op, "error", err)
				_ = c.Close()
				return
			}
		}
	}
}

// Do executes one request against the engine.
func (s *Server) Do(ctx context.Context, req Request) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.do(ctx, req)
	resp.ID = req.ID
	resp.Op = req.Op
	if err != nil {
		resp.Error = err.Error()
		s.log.Debug("request failed", "op", req.Op, "error", err)
		return resp
	}
	resp.OK = true
	return resp
}

func (s *Server) do(ctx context.Context, req Request) (Response, error) {
	var resp Response

	switch req.Op {
	case OpReconcile:
		var g patch.Graph
		if req.Graph != nil {
			g = *req.Graph
		}
		resp.Report = reportView(s.eng.Reconcile(g))

	case OpLoad:
		doc, err := patch.Decode(req.Document)
		if err != nil {
			return resp, err
		}
		rep, err := s.eng.Load(doc)
		if err != nil {
			return resp, err
		}
		resp.Report = reportView(rep)

	case OpStart:
		return resp, s.eng.Start(ctx)

	case OpStop:
		s.eng.Stop()

	case OpTempo:
		return resp, s.eng.SetTempo(req.BPM)

	case OpWaveform:
		resp.Waveform = s.eng.ReadWaveform(req.Node)

	case OpSpectrum:
		resp.Spectrum = s.eng.ReadSpectrum(req.Node)

	case OpCaptureStart:
		return resp, s.eng.StartCapture(ctx)

	case OpCaptureStop:
		data, err := s.eng.StopCapture()
		if err != nil {
			return resp, err
		}
		resp.Capture = data

	case OpStatus:
		resp.Status = statusView(s.eng.Snapshot())

	case OpSave:
		if s.lib == nil {
			return resp, ErrNoLibrary
		}
		st := s.eng.Snapshot()
		return resp, s.lib.Put(req.Name, patch.NewDocument(st.Graph, st.Tempo))

	case OpOpen:
		if s.lib == nil {
			return resp, ErrNoLibrary
		}
		doc, err := s.lib.Get(req.Name)
		if err != nil {
			return resp, err
		}
		rep, err := s.eng.Load(doc)
		if err != nil {
			return resp, err
		}
		resp.Report = reportView(rep)

	case OpList:
		if s.lib == nil {
			return resp, ErrNoLibrary
		}
		names, err := s.lib.List()
		if err != nil {
			return resp, err
		}
		resp.Names = names

	default:
		return resp, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
	}
	return resp, nil
}

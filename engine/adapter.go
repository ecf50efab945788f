package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

// liveUnit is the backend-side counterpart of one node. It is immutable
// once built, so published snapshots can share it.
type liveUnit struct {
	nodeID string
	kind   patch.Kind
	spec   kindSpec
	handle backend.Handle // nil for kinds without a backend unit
	aux    backend.Handle // monitoring tap, if any
}

// monitorHandle returns the handle whose waveform describes this node.
func (u *liveUnit) monitorHandle() backend.Handle {
	switch {
	case u.aux != nil:
		return u.aux
	case u.spec.monitor:
		return u.handle
	}
	return nil
}

// adapter translates node-level operations into backend primitives.
type adapter struct {
	be   backend.Backend
	ramp time.Duration
	log  *slog.Logger
}

// build constructs the unit for n. Construction is atomic: if any step
// fails, every handle created for n is released before returning.
func (a *adapter) build(n patch.Node) (_ *liveUnit, err error) {
	spec, ok := lookupKind(n.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}

	u := &liveUnit{nodeID: n.ID, kind: n.Kind, spec: spec}
	if !spec.hasUnit {
		return u, nil
	}

	var created []backend.Handle
	defer func() {
		if err == nil {
			return
		}
		for _, h := range created {
			if derr := a.be.Dispose(h); derr != nil {
				a.log.Debug("dispose after failed build", "node", n.ID, "error", derr)
			}
		}
	}()

	u.handle, err = a.be.Create(spec.primitive)
	if err != nil {
		return nil, fmt.Errorf("engine: create %s for %q: %w", spec.primitive, n.ID, err)
	}
	created = append(created, u.handle)

	if spec.tap {
		u.aux, err = a.be.Create(backend.PrimitiveScope)
		if err != nil {
			return nil, fmt.Errorf("engine: create tap for %q: %w", n.ID, err)
		}
		created = append(created, u.aux)
		if err = a.be.Connect(u.handle, u.aux); err != nil {
			return nil, fmt.Errorf("engine: connect tap for %q: %w", n.ID, err)
		}
	}

	if spec.autostart {
		if err = a.be.Start(u.handle); err != nil {
			return nil, fmt.Errorf("engine: start %q: %w", n.ID, err)
		}
	}

	return u, nil
}

// release disposes every handle owned by u.
func (a *adapter) release(u *liveUnit) error {
	var errs []error
	for _, h := range []backend.Handle{u.aux, u.handle} {
		if h == nil {
			continue
		}
		if err := a.be.Dispose(h); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("engine: release %q: %w", u.nodeID, err)
	}
	return nil
}

// apply pushes the declared parameters p onto u.
func (a *adapter) apply(u *liveUnit, p patch.Params) error {
	if u.handle == nil || u.spec.apply == nil {
		return nil
	}
	w := &paramWriter{be: a.be, h: u.handle, ramp: a.ramp}
	u.spec.apply(w, p)
	if err := w.err(); err != nil {
		return fmt.Errorf("engine: params of %q: %w", u.nodeID, err)
	}
	return nil
}

// disconnectAll severs the outgoing audio edges of u. The fixed sink keeps
// its route to the output and its monitoring tap.
func (a *adapter) disconnectAll(u *liveUnit) error {
	if u.handle == nil || u.spec.fixedSink {
		return nil
	}
	if err := a.be.Disconnect(u.handle); err != nil {
		return fmt.Errorf("engine: disconnect %q: %w", u.nodeID, err)
	}
	return nil
}

func (a *adapter) connect(src, dst *liveUnit) error {
	if err := a.be.Connect(src.handle, dst.handle); err != nil {
		return fmt.Errorf("engine: connect %q -> %q: %w", src.nodeID, dst.nodeID, err)
	}
	return nil
}

func (a *adapter) trigger(u *liveUnit, n backend.Note, at float64) error {
	return a.be.Trigger(u.handle, n, at)
}

// batch runs fn with topology edits staged when the backend supports it.
func (a *adapter) batch(fn func()) {
	b, ok := a.be.(backend.Batcher)
	if !ok {
		fn()
		return
	}
	b.BeginUpdate()
	defer b.CommitUpdate()
	fn()
}

package device

import (
	"context"
	"sync"
	"time"
)

// Ticker renders a Renderer in real time from a software clock and
// discards the output. Each period it renders the frames that elapsed
// since the previous one, so a late wakeup catches up instead of drifting.
type Ticker struct {
	sampleRate float64
	period     time.Duration

	mu       sync.Mutex
	renderer Renderer
	cancel   context.CancelFunc
	done     chan struct{}

	now func() time.Time
}

// NewTicker returns a Ticker that wakes every period.
func NewTicker(sampleRate float64, period time.Duration) *Ticker {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	return &Ticker{sampleRate: sampleRate, period: period, now: time.Now}
}

// Attach sets the renderer the clock drives.
func (t *Ticker) Attach(r Renderer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
}

// Activate starts the clock goroutine. Calling it on a running Ticker is
// a no-op.
func (t *Ticker) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		return nil
	}
	if t.renderer == nil {
		return ErrNoRenderer
	}

	runCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(runCtx, t.renderer, t.done)
	return nil
}

func (t *Ticker) run(ctx context.Context, r Renderer, done chan struct{}) {
	defer close(done)

	tk := time.NewTicker(t.period)
	defer tk.Stop()

	start := t.now()
	var rendered int64
	var left, right []float32
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		}

		due := int64(t.now().Sub(start).Seconds() * t.sampleRate)
		n := int(due - rendered)
		if n <= 0 {
			continue
		}
		if cap(left) < n {
			left = make([]float32, n)
			right = make([]float32, n)
		}
		r.Render(left[:n], right[:n])
		rendered = due
	}
}

// Close stops the clock and waits for the goroutine to exit.
func (t *Ticker) Close() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

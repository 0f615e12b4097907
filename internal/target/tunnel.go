package target

import (
	"sync"
	"time"
)

// ChanTunnel implements Tunnel on top of the ready/stop channel pair that
// client-go's port forwarder uses. The runtime goroutine owns Ready (it
// closes it, either directly or through MarkReady) and calls Finish when the
// forward returns.
type ChanTunnel struct {
	ready chan struct{}
	stop  chan struct{}
	done  chan struct{}

	readyOnce sync.Once
	stopOnce  sync.Once
	doneOnce  sync.Once

	mu  sync.Mutex
	err error
}

func NewChanTunnel() *ChanTunnel {
	return &ChanTunnel{
		ready: make(chan struct{}),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// ReadyChan is handed to a forwarder that closes it itself.
func (t *ChanTunnel) ReadyChan() chan struct{} { return t.ready }

// StopChan is closed by Close.
func (t *ChanTunnel) StopChan() chan struct{} { return t.stop }

// MarkReady closes the ready channel. Do not use it when ReadyChan was
// passed to client-go.
func (t *ChanTunnel) MarkReady() {
	t.readyOnce.Do(func() { close(t.ready) })
}

// Finish records the terminal error and closes Done.
func (t *ChanTunnel) Finish(err error) {
	t.doneOnce.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
	})
}

func (t *ChanTunnel) Ready() <-chan struct{} { return t.ready }

func (t *ChanTunnel) Done() <-chan struct{} { return t.done }

func (t *ChanTunnel) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// closeWait bounds how long Close waits for the forward goroutine to exit.
const closeWait = 2 * time.Second

// Close stops the tunnel. It is safe to call more than once.
func (t *ChanTunnel) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })
	select {
	case <-t.done:
	case <-time.After(closeWait):
	}
	return nil
}

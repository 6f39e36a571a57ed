package analyser

import (
	"errors"
	"fmt"
	"sync"
)

// ErrResultSinkClosed is returned when a channel sink is written to after being closed.
var ErrResultSinkClosed = errors.New("analyser: result sink closed")

// ResultSink receives the result of every processed job.
type ResultSink interface {
	Deliver(JobResult) error
	Name() string
}

// ResultHandler is a plain function form of ResultSink.
type ResultHandler func(JobResult) error

// NewCallbackResultSink adapts fn into a ResultSink so callers can plug
// arbitrary functions without defining structs.
func NewCallbackResultSink(name string, fn ResultHandler) ResultSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelResultSink exposes results via a channel; it returns the sink,
// the read-only channel, and a close function that the caller should
// invoke during shutdown.
func NewChannelResultSink(name string, buffer int) (ResultSink, <-chan JobResult, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan JobResult, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   ResultHandler
}

func (s *callbackSink) Deliver(r JobResult) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(copyResult(r))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan JobResult
	closed chan struct{}
	once   sync.Once
	mu     sync.RWMutex
}

func (s *channelSink) Deliver(r JobResult) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrResultSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrResultSinkClosed
	case s.ch <- copyResult(r):
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		// wait for in-flight sends before closing the channel
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

// copyResult detaches the plot map so receivers may keep or modify it.
func copyResult(r JobResult) JobResult {
	if len(r.PlotFiles) == 0 {
		return r
	}
	files := make(map[string]string, len(r.PlotFiles))
	for k, v := range r.PlotFiles {
		files[k] = v
	}
	r.PlotFiles = files
	return r
}

package analyser

import (
	"errors"
	"testing"
	"time"
)

func TestNewCallbackResultSink(t *testing.T) {
	var received []JobResult
	sink := NewCallbackResultSink("cb", func(r JobResult) error {
		received = append(received, r)
		return nil
	})

	input := JobResult{JobID: "j1", SessionID: "s1", PlotFiles: map[string]string{"attitude": "a.png"}}
	if err := sink.Deliver(input); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if len(received) != 1 || received[0].JobID != "j1" {
		t.Fatalf("unexpected results %+v", received)
	}

	received[0].PlotFiles["attitude"] = "changed.png"
	if input.PlotFiles["attitude"] != "a.png" {
		t.Fatalf("expected plot files to be copied")
	}
	if sink.Name() != "cb" {
		t.Fatalf("expected name cb, got %s", sink.Name())
	}
}

func TestNewCallbackResultSinkNilHandler(t *testing.T) {
	sink := NewCallbackResultSink("", nil)
	if err := sink.Deliver(JobResult{JobID: "j"}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %s", sink.Name())
	}
}

func TestNewChannelResultSink(t *testing.T) {
	sink, ch, closeFn := NewChannelResultSink("chan", 0)
	defer closeFn()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sink.Deliver(JobResult{JobID: "j2"})
	}()

	var got JobResult
	select {
	case got = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if got.JobID != "j2" {
		t.Fatalf("unexpected result %+v", got)
	}

	closeFn()
	if err := sink.Deliver(JobResult{JobID: "j3"}); !errors.Is(err, ErrResultSinkClosed) {
		t.Fatalf("expected ErrResultSinkClosed, got %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
}

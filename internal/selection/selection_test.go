package selection

import (
	"reflect"
	"testing"
	"time"
)

func TestSetAddDedupe(t *testing.T) {
	s := New()
	s.Set([]string{"/a", "/b", "/a", ""})
	s.Add("/c", "/b")

	if got, want := s.Snapshot(), []string{"/a", "/b", "/c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Snapshot = %v, want %v", got, want)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	s.Clear()
	if s.Len() != 0 || len(s.Snapshot()) != 0 {
		t.Fatalf("selection not cleared: %v", s.Snapshot())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Set([]string{"/a"})
	snap := s.Snapshot()
	snap[0] = "/mutated"
	if got := s.Snapshot()[0]; got != "/a" {
		t.Fatalf("store mutated through snapshot: %q", got)
	}
}

func TestNotifyConsumedNeverBlocks(t *testing.T) {
	s := New()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.NotifyConsumed()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyConsumed blocked without a receiver")
	}

	select {
	case <-s.Consumed():
	default:
		t.Fatal("expected a pending consumed signal")
	}
	select {
	case <-s.Consumed():
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestNotifyAfterCloseDoesNotPanic(t *testing.T) {
	s := New()
	s.Close()
	s.Close()
	s.NotifyConsumed()

	if _, ok := <-s.Consumed(); ok {
		t.Fatal("Consumed channel should be closed")
	}
}

func TestResetOnConsume(t *testing.T) {
	s := New()
	s.Set([]string{"/a", "/b"})

	done := make(chan struct{})
	go func() {
		s.ResetOnConsume()
		close(done)
	}()

	s.NotifyConsumed()
	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("selection was not cleared after consume")
		}
		time.Sleep(time.Millisecond)
	}

	s.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ResetOnConsume did not return after Close")
	}
}

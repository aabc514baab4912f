package task

import (
	"sync"
	"testing"
	"time"

	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

func TestSpawnAndAwait(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	h := pool.Spawn(func() value.Value {
		return value.NumberFromInt(42)
	})
	result := h.Await()
	if result.Kind() != value.KindNumber {
		t.Fatalf("result is not Number. got=%s (%+v)", result.Kind(), result)
	}
	if result.AsNumber().IntPart() != 42 {
		t.Errorf("result: got=%s, want=42", result.AsNumber())
	}
}

func TestAwaitCompletedHandle(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	h := pool.Spawn(func() value.Value { return value.Str("done") })
	h.Await()
	if !h.Done() {
		t.Fatalf("handle not done after await")
	}
	// A second await returns immediately with the same result.
	if got := h.Await().AsString(); got != "done" {
		t.Errorf("second await: got=%q, want=%q", got, "done")
	}
}

func TestSpawnFromInsideTask(t *testing.T) {
	// One worker must not deadlock when a task spawns another task and only
	// the caller awaits it.
	pool := NewPool(1)
	defer pool.Close()

	outer := pool.Spawn(func() value.Value {
		inner := pool.Spawn(func() value.Value { return value.NumberFromInt(1) })
		return value.Task(inner)
	})
	inner, ok := outer.Await().AsTask().(*Handle)
	if !ok {
		t.Fatalf("outer result is not a handle")
	}
	if inner.Await().AsNumber().IntPart() != 1 {
		t.Errorf("inner task result wrong")
	}
}

func TestCloseRunsPendingTasks(t *testing.T) {
	pool := NewPool(1)

	var mu sync.Mutex
	ran := 0
	handles := make([]*Handle, 0, 10)
	for i := 0; i < 10; i++ {
		handles = append(handles, pool.Spawn(func() value.Value {
			mu.Lock()
			ran++
			mu.Unlock()
			return value.Bool(true)
		}))
	}
	pool.Close()

	mu.Lock()
	defer mu.Unlock()
	if ran != 10 {
		t.Fatalf("pending tasks dropped at close: ran=%d, want=10", ran)
	}
	for _, h := range handles {
		if !h.Done() {
			t.Errorf("handle not completed after close")
		}
	}
}

func TestChannelFIFO(t *testing.T) {
	ch := NewChannel(0)
	for i := int64(1); i <= 3; i++ {
		if err := ch.Send(value.NumberFromInt(i)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if ch.Len() != 3 {
		t.Fatalf("len: got=%d, want=3", ch.Len())
	}
	for i := int64(1); i <= 3; i++ {
		v, err := ch.Receive()
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if v.AsNumber().IntPart() != i {
			t.Errorf("message %d: got=%s", i, v.AsNumber())
		}
	}
}

func TestChannelBlocksUntilSend(t *testing.T) {
	ch := NewChannel(0)
	got := make(chan value.Value, 1)
	go func() {
		v, err := ch.Receive()
		if err != nil {
			t.Errorf("receive: %v", err)
			return
		}
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	if err := ch.Send(value.Str("late")); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case v := <-got:
		if v.AsString() != "late" {
			t.Errorf("got=%q, want=%q", v.AsString(), "late")
		}
	case <-time.After(time.Second):
		t.Fatalf("receiver never woke up")
	}
}

func TestBoundedChannelBlocksSender(t *testing.T) {
	ch := NewChannel(1)
	if err := ch.Send(value.NumberFromInt(1)); err != nil {
		t.Fatalf("send: %v", err)
	}

	sent := make(chan struct{})
	go func() {
		ch.Send(value.NumberFromInt(2))
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatalf("send on a full bounded channel did not block")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := ch.Receive(); err != nil {
		t.Fatalf("receive: %v", err)
	}
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatalf("blocked sender never resumed")
	}
}

func TestSpawnAfterCloseCompletes(t *testing.T) {
	p := NewPool(2)
	p.Close()

	h := p.Spawn(func() value.Value { return value.NumberFromInt(7) })
	if !h.Done() {
		t.Fatalf("handle from closed pool not completed")
	}
	v := h.Await()
	if v.AsNumber().IntPart() != 7 {
		t.Errorf("result: got=%s, want=7", v.AsNumber())
	}
}

func TestClosedChannel(t *testing.T) {
	ch := NewChannel(0)
	ch.Send(value.NumberFromInt(1))
	ch.Close()

	if err := ch.Send(value.NumberFromInt(2)); !rterr.Is(err, rterr.ChannelClosed) {
		t.Errorf("send on closed: got=%v, want ChannelClosed", err)
	}

	// Queued messages stay receivable after close.
	v, err := ch.Receive()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if v.AsNumber().IntPart() != 1 {
		t.Errorf("drained: got=%s, want=1", v.AsNumber())
	}

	if _, err := ch.Receive(); !rterr.Is(err, rterr.ChannelClosed) {
		t.Errorf("receive on drained closed channel: got=%v, want ChannelClosed", err)
	}
}

package native

import (
	"time"

	"go.uber.org/zap"
)

// OpKind names a native write.
type OpKind string

const (
	OpAttribute OpKind = "attribute"
	OpStyle     OpKind = "style"
	OpInvoke    OpKind = "invoke"
)

// Op is one write recorded between flushes.
type Op struct {
	Kind  OpKind `json:"kind"`
	Node  string `json:"node"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// FlushEvent is published for every FlushElementTree call.
type FlushEvent struct {
	Seq  uint64    `json:"seq"`
	Ops  []Op      `json:"ops"`
	HTML string    `json:"html"`
	Time time.Time `json:"time"`
}

// FlushElementTree implements element.Native.
func (t *Tree) FlushElementTree() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	event := FlushEvent{
		Seq:  t.seq,
		Ops:  t.ops,
		Time: time.Now(),
	}
	t.ops = nil
	t.rendered = t.render()
	event.HTML = t.rendered

	for _, ch := range t.subs {
		select {
		case ch <- event:
		default:
			t.logger.Warn("Flush subscriber is full, dropping event", zap.Uint64("seq", event.Seq))
		}
	}
}

// Seq returns the number of flushes so far.
func (t *Tree) Seq() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// Pending returns the writes recorded since the last flush.
func (t *Tree) Pending() []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Op(nil), t.ops...)
}

// Subscribe delivers flush events on the returned channel until cancel is
// called. Events are dropped while the channel is full.
func (t *Tree) Subscribe(buffer int) (<-chan FlushEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan FlushEvent, buffer)

	t.mu.Lock()
	t.nextSub++
	id := t.nextSub
	t.subs[id] = ch
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

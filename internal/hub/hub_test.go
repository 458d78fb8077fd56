package hub

import (
	"testing"
)

type mockSub struct {
	closed bool
	got    [][]byte
}

func (m *mockSub) Push(d []byte) bool {
	if m.closed {
		return true
	}
	m.got = append(m.got, d)
	return false
}

func TestBroadcastFanOut(t *testing.T) {
	h := New()
	subs := make([]*mockSub, 3)
	for i := range subs {
		subs[i] = &mockSub{}
		h.Subscribe(subs[i])
	}
	h.Broadcast([]byte("a"))
	h.Broadcast([]byte("b"))
	for i, s := range subs {
		if len(s.got) != 2 {
			t.Errorf("sub %d got %d frames, expected 2", i, len(s.got))
		}
	}
}

func TestClosedSubscriberRemoved(t *testing.T) {
	h := New()
	alive := &mockSub{}
	dead := &mockSub{closed: true}
	h.Subscribe(alive)
	h.Subscribe(dead)
	h.Broadcast([]byte("a"))
	if h.Count() != 1 {
		t.Errorf("closed subscriber not pruned, count=%d", h.Count())
	}
	h.Broadcast([]byte("b"))
	if len(alive.got) != 2 {
		t.Errorf("alive subscriber got %d frames, expected 2", len(alive.got))
	}
	if len(dead.got) != 0 {
		t.Errorf("closed subscriber received %d frames", len(dead.got))
	}
}

func TestUnsubscribe(t *testing.T) {
	h := New()
	s := &mockSub{}
	h.Subscribe(s)
	h.Unsubscribe(s)
	h.Broadcast([]byte("a"))
	if len(s.got) != 0 {
		t.Error("unsubscribed subscriber still receiving")
	}
}

package registry

import (
	"testing"
)

func TestConnectOverwrites(t *testing.T) {
	r := New()
	r.Connect(2, "Jagdish Suthar", "conn-a")
	r.Connect(2, "Jagdish Suthar", "conn-b")
	if r.Count() != 1 {
		t.Fatalf("expected single entry per rider, got %d", r.Count())
	}
	e, ok := r.Get(2)
	if !ok || e.ConnID != "conn-b" {
		t.Errorf("second connect must overwrite, got %+v", e)
	}
}

func TestDisconnect(t *testing.T) {
	r := New()
	r.Connect(1, "Ramesh Kumar", "conn-a")
	e, ok := r.Disconnect(1)
	if !ok || e.Name != "Ramesh Kumar" {
		t.Errorf("expected removed entry back, got %+v ok=%v", e, ok)
	}
	if _, ok := r.Disconnect(1); ok {
		t.Error("second disconnect must report absent")
	}
	if r.Count() != 0 {
		t.Errorf("registry not empty: %d", r.Count())
	}
}

func TestFindByConn(t *testing.T) {
	r := New()
	r.Connect(1, "Ramesh Kumar", "conn-a")
	r.Connect(2, "Jagdish Suthar", "conn-b")
	e, ok := r.FindByConn("conn-b")
	if !ok || e.RiderID != 2 {
		t.Errorf("expected rider 2, got %+v ok=%v", e, ok)
	}
	if _, ok := r.FindByConn("conn-x"); ok {
		t.Error("unknown conn id must not match")
	}
}

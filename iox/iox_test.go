package iox

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type spyBody struct {
	io.Reader
	closed bool
}

func (s *spyBody) Close() error { s.closed = true; return errors.New("ignored") }

func TestDiscardClose(t *testing.T) {
	s := &spyBody{Reader: strings.NewReader("")}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestDrainClose(t *testing.T) {
	s := &spyBody{Reader: strings.NewReader(`{"checkout_id":"abc"}`)}
	if n := DrainClose(s); n != 21 {
		t.Errorf("drained = %d, want 21", n)
	}
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestDrainClose_Bounded(t *testing.T) {
	s := &spyBody{Reader: strings.NewReader(strings.Repeat("x", MaxDrain+100))}
	if n := DrainClose(s); n != MaxDrain {
		t.Errorf("drained = %d, want %d", n, MaxDrain)
	}
}

func TestReadLimited(t *testing.T) {
	got := ReadLimited(strings.NewReader("network failure"), 7)
	if string(got) != "network" {
		t.Errorf("ReadLimited = %q, want %q", got, "network")
	}
}

package client

import (
	"testing"
)

func TestHandlerOrderAndRemoval(t *testing.T) {
	var list handlerList
	var got []string

	list.add(func(any) { got = append(got, "a") })
	removeB := list.add(func(any) { got = append(got, "b") })
	list.add(func(any) { got = append(got, "c") })

	list.dispatch(nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}

	removeB()
	removeB() // second removal is a no-op

	got = nil
	list.dispatch(nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("unexpected order after removal: %v", got)
	}
}

func TestHandlerDuplicateRegistrations(t *testing.T) {
	var list handlerList
	var count int

	fn := func(any) { count++ }
	remove1 := list.add(fn)
	list.add(fn)

	list.dispatch(nil)
	if count != 2 {
		t.Fatalf("expected both registrations invoked, got %d", count)
	}

	remove1()
	count = 0
	list.dispatch(nil)
	if count != 1 {
		t.Fatalf("expected one registration left, got %d", count)
	}
}

func TestHandlerPanicIsolation(t *testing.T) {
	var list handlerList
	var reached bool

	list.add(func(any) { panic("boom") })
	list.add(func(any) { reached = true })

	list.dispatch(nil)
	if !reached {
		t.Fatal("handler after panicking one was not invoked")
	}
}

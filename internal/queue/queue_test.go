package queue

import (
	"testing"

	"github.com/andrewbartolo/mutilate/internal/protocol"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := New(3)
	for i := 0; i < 3; i++ {
		if err := q.Push(Operation{Type: protocol.OpGet, Key: string(rune('a' + i))}); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		op, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop(%d): %v", i, err)
		}
		want := string(rune('a' + i))
		if op.Key != want {
			t.Fatalf("Pop(%d) key = %q, want %q (order must match issue order)", i, op.Key, want)
		}
	}
}

func TestPushFullReturnsErrFull(t *testing.T) {
	q := New(2)
	if err := q.Push(Operation{}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(Operation{}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(Operation{}); err != ErrFull {
		t.Fatalf("err = %v, want ErrFull", err)
	}
}

func TestPopEmptyReturnsErrEmpty(t *testing.T) {
	q := New(2)
	if _, err := q.Pop(); err != ErrEmpty {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestRingBufferWrapsAroundCapacity(t *testing.T) {
	q := New(2)
	q.Push(Operation{Key: "a"})
	q.Push(Operation{Key: "b"})
	q.Pop()
	q.Push(Operation{Key: "c"})

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	op, _ := q.Pop()
	if op.Key != "b" {
		t.Fatalf("Pop() key = %q, want b", op.Key)
	}
	op, _ = q.Pop()
	if op.Key != "c" {
		t.Fatalf("Pop() key = %q, want c", op.Key)
	}
	if !q.Empty() {
		t.Fatal("expected queue to be empty")
	}
}

func TestFullAndEmpty(t *testing.T) {
	q := New(1)
	if !q.Empty() || q.Full() {
		t.Fatal("new queue should be empty, not full")
	}
	q.Push(Operation{})
	if q.Empty() || !q.Full() {
		t.Fatal("queue at depth 1 with one op should be full, not empty")
	}
}

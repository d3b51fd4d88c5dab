package cache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/liquid/internal/bytecode"
)

func program(name string, text string) *bytecode.Program {
	p := bytecode.NewProgram(name)
	p.Instructions.Append(bytecode.OpConstant, p.AddConstant(text))
	p.Instructions.Append(bytecode.OpWrite)
	p.Statements = []int{0}
	return p
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "programs.db"))
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openStore(t)
	p := program("page", "hello")

	if _, err := s.Get("page", "hello"); !errors.Is(err, ErrMiss) {
		t.Fatalf("empty store: got err=%v, want ErrMiss", err)
	}

	id, err := s.Put("page", "hello", p)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Errorf("expected an entry id")
	}

	got, err := s.Get("page", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p.Instructions.Slice(), got.Instructions.Slice()); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(p.Constants, got.Constants); diff != "" {
		t.Errorf("constants mismatch (-want +got):\n%s", diff)
	}

	again, err := s.Put("page", "hello", p)
	if err != nil {
		t.Fatal(err)
	}
	if again != id {
		t.Errorf("re-storing the same source changed its id: %s -> %s", id, again)
	}
}

func TestStoreReplacesOldSource(t *testing.T) {
	s := openStore(t)
	if _, err := s.Put("page", "v1", program("page", "v1")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put("other", "x", program("other", "x")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put("page", "v2", program("page", "v2")); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get("page", "v1"); !errors.Is(err, ErrMiss) {
		t.Errorf("old source still cached: err=%v", err)
	}
	if n, err := s.Len(); err != nil || n != 2 {
		t.Errorf("Len() = %d, %v; want 2", n, err)
	}

	if err := s.Delete("page"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Len(); n != 1 {
		t.Errorf("Len() after delete = %d, want 1", n)
	}
}

func TestStoreInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Put("a", "b", program("a", "b")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("a", "b"); err != nil {
		t.Errorf("in-memory store lost its entry: %s", err)
	}
}

func TestHashIsStable(t *testing.T) {
	if Hash("x") != Hash("x") || Hash("x") == Hash("y") {
		t.Errorf("hash must be deterministic and source-dependent")
	}
}

func TestLRU(t *testing.T) {
	c, err := NewLRU[string, int](2)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	c.Add("a", 1)
	c.Add("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Add("c", 3) // evicts b, the least recently used

	if _, ok := c.Peek("b"); ok {
		t.Errorf("b should have been evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Peek(key); !ok {
			t.Errorf("%s should be present", key)
		}
	}

	c.Add("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("replace: got=%d, want=10", v)
	}
	c.Remove("a")
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUUnbounded(t *testing.T) {
	c, err := NewLRU[int, int](0)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	for i := 0; i < 1000; i++ {
		c.Add(i, i)
	}
	if c.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", c.Len())
	}
	if v, ok := c.Get(0); !ok || v != 0 {
		t.Errorf("oldest entry evicted from an unbounded cache: %v,%v", v, ok)
	}
}

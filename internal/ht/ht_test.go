package ht_test

import (
	"testing"

	"github.com/shdown/calx/internal/ht"
)

func TestInsertGet(t *testing.T) {
	tbl := ht.New[int](2)
	tbl.Insert("a", 1)
	tbl.Insert("b", 2)
	tbl.Insert("c", 3)

	for k, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		got, ok := tbl.Get(k)
		if !ok || got != want {
			t.Errorf("Get(%q) = %v, %v; want %v, true", k, got, ok, want)
		}
	}
	if _, ok := tbl.Get("missing"); ok {
		t.Errorf("Get(missing) reported present")
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
}

func TestRemoveSwapsWithLast(t *testing.T) {
	tbl := ht.New[int](2)
	tbl.Insert("a", 1)
	tbl.Insert("b", 2)
	tbl.Insert("c", 3)

	v, ok := tbl.Remove("a")
	if !ok || v != 1 {
		t.Fatalf("Remove(a) = %v, %v", v, ok)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() after remove = %d, want 2", tbl.Len())
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := tbl.Get(k); !ok {
			t.Errorf("Get(%q) missing after unrelated removal", k)
		}
	}
	if _, ok := tbl.Get("a"); ok {
		t.Errorf("Get(a) still present after Remove")
	}
}

func TestGrowthPreservesEntries(t *testing.T) {
	tbl := ht.New[int](1)
	const n = 500
	for i := 0; i < n; i++ {
		tbl.Insert(string(rune('A'+i%26))+itoa(i), i)
	}
	if tbl.Len() != n {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), n)
	}
	for i := 0; i < n; i++ {
		key := string(rune('A'+i%26)) + itoa(i)
		got, ok := tbl.Get(key)
		if !ok || got != i {
			t.Errorf("Get(%q) = %v, %v; want %d, true", key, got, ok, i)
		}
	}
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := v < 0
	if neg {
		v = -v
	}
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestIndexedIteration(t *testing.T) {
	tbl := ht.New[int](3)
	keys := []string{"one", "two", "three", "four", "five"}
	for i, k := range keys {
		tbl.Insert(k, i)
	}
	seen := map[string]bool{}
	i := tbl.IndexedFirst(0)
	count := 0
	for i != -1 {
		count++
		if count > len(keys)+1 {
			t.Fatal("IndexedNext loop did not terminate")
		}
		key := tbl.KeyAt(i)
		if seen[key] {
			t.Fatalf("IndexedNext visited %q twice", key)
		}
		seen[key] = true
		i = tbl.IndexedNext(key)
	}
	for _, k := range keys {
		if !seen[k] {
			t.Errorf("IndexedNext never visited %q", k)
		}
	}
}

func TestEachIsInsertionOrder(t *testing.T) {
	tbl := ht.New[int](2)
	keys := []string{"x", "y", "z"}
	for i, k := range keys {
		tbl.Insert(k, i)
	}
	var got []string
	tbl.Each(func(k string, v int) { got = append(got, k) })
	if len(got) != len(keys) {
		t.Fatalf("Each visited %d entries, want %d", len(got), len(keys))
	}
	for i, k := range keys {
		if got[i] != k {
			t.Errorf("Each()[%d] = %q, want %q", i, got[i], k)
		}
	}
}

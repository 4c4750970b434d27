package value

import "github.com/shdown/calx/internal/ht"

// weakHead is the intrusive doubly-linked list of outstanding weakrefs
// pointing at a weakrefable value. It is embedded in List and Dict.
type weakHead struct {
	first *Weakref
}

func (h *weakHead) insert(w *Weakref) {
	w.prev = nil
	w.next = h.first
	if h.first != nil {
		h.first.prev = w
	}
	h.first = w
}

func (h *weakHead) unlink(w *Weakref) {
	if w.prev != nil {
		w.prev.next = w.next
	} else if h.first == w {
		h.first = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	}
	w.prev, w.next = nil, nil
}

// invalidate nulls the target of every outstanding weakref and empties the
// list, called when the weakrefable value itself is released.
func (h *weakHead) invalidate() {
	for w := h.first; w != nil; {
		next := w.next
		w.target = nil
		w.prev, w.next = nil, nil
		w = next
	}
	h.first = nil
}

// List is a grow-by-doubling array of owned values.
type List struct {
	items []Value
	refs  int32
	weak  weakHead
}

// NewList returns an empty list with refcount 1.
func NewList() *List { return &List{refs: 1} }

// Len returns the element count.
func (l *List) Len() int { return len(l.items) }

// Items exposes the backing slice for read access (callers must not retain
// it across a mutating call, since Append may reallocate).
func (l *List) Items() []Value { return l.items }

// Get returns the element at i, which must be in range.
func (l *List) Get(i int) Value { return l.items[i] }

// Set overwrites the element at i, releasing the value it replaces.
func (l *List) Set(i int, v Value) {
	l.items[i].Unref()
	l.items[i] = v
}

// Append adds v to the end, taking ownership of it.
func (l *List) Append(v Value) {
	if len(l.items) == cap(l.items) {
		newCap := cap(l.items) * 2
		if newCap == 0 {
			newCap = 4
		}
		grown := make([]Value, len(l.items), newCap)
		copy(grown, l.items)
		l.items = grown
	}
	l.items = append(l.items, v)
}

// Pop removes and returns the last element.
func (l *List) Pop() (Value, bool) {
	if len(l.items) == 0 {
		return Value{}, false
	}
	v := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return v, true
}

func (l *List) release() {
	for _, v := range l.items {
		v.Unref()
	}
	l.items = nil
	l.weak.invalidate()
}

// Dict is an order-preserving open-bucket string-keyed map: see
// internal/ht for the underlying table. Removal is O(1) via the table's
// swap-with-last discipline, which displaces insertion order for the moved
// entry — matching the reference table's contract exactly.
type Dict struct {
	tbl  *ht.Table[Value]
	refs int32
	weak weakHead
}

// NewDict returns an empty dict with refcount 1.
func NewDict() *Dict { return &Dict{tbl: ht.New[Value](2), refs: 1} }

func (d *Dict) Len() int { return d.tbl.Len() }

// Get returns a borrowed reference to the value stored for key.
func (d *Dict) Get(key string) (Value, bool) { return d.tbl.Get(key) }

// GetOrInsertNil returns a slot index for key, inserting a Nil-valued entry
// if absent, mirroring get_mut's "insert on miss" contract.
func (d *Dict) GetOrInsertNil(key string) int {
	if i, ok := d.tbl.Index(key); ok {
		return i
	}
	return d.tbl.Insert(key, Nil)
}

// SetAt overwrites the value at a slot previously obtained from
// GetOrInsertNil, releasing whatever it replaces.
func (d *Dict) SetAt(slot int, v Value) {
	d.tbl.At(slot).Unref()
	d.tbl.SetAt(slot, v)
}

// Set inserts or overwrites key with v.
func (d *Dict) Set(key string, v Value) {
	d.SetAt(d.GetOrInsertNil(key), v)
}

// Remove deletes key, releasing its value, and reports whether it was
// present.
func (d *Dict) Remove(key string) bool {
	v, ok := d.tbl.Remove(key)
	if ok {
		v.Unref()
	}
	return ok
}

// NextKey returns the key that follows key in bucket order (not insertion
// order), or "" with ok=false if key was the last one. With hasKey false,
// key is ignored and the first key is returned.
func (d *Dict) NextKey(key string, hasKey bool) (string, bool) {
	var idx int
	if !hasKey {
		idx = d.tbl.IndexedFirst(0)
	} else {
		idx = d.tbl.IndexedNext(key)
	}
	if idx < 0 {
		return "", false
	}
	return d.tbl.KeyAt(idx), true
}

// Each walks entries in stable insertion order.
func (d *Dict) Each(f func(key string, v Value)) { d.tbl.Each(f) }

func (d *Dict) release() {
	d.tbl.Each(func(_ string, v Value) { v.Unref() })
	d.weak.invalidate()
}

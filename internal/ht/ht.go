// Package ht implements the open-bucket hash table behind value.Dict: a power-of-two
// bucket array of item indices chained through an append-mostly item slice,
// with O(1) removal via swap-with-last.
package ht

// noItem marks an empty bucket slot or chain terminator.
const noItem = ^uint32(0)

// FNV-1a 32-bit constants, inlined by hand (see Hash).
const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

type item[V any] struct {
	key   string
	value V
	next  uint32
	hash  uint32
}

// Table is a generic open-bucket hash table keyed by byte strings. The zero
// Table is not usable; use New.
type Table[V any] struct {
	items   []item[V]
	buckets []uint32
	size    uint32
}

// New returns an empty table with 2^rank initial buckets.
func New[V any](rank uint) *Table[V] {
	n := uint32(1) << rank
	t := &Table[V]{buckets: make([]uint32, n)}
	for i := range t.buckets {
		t.buckets[i] = noItem
	}
	return t
}

// Hash computes the table's key hash (FNV-1a over the key bytes), inlined
// by hand rather than going through hash/fnv's hash.Hash32 interface, which
// would allocate on every call.
func Hash(key string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= fnvPrime32
	}
	return h
}

// Len returns the number of entries.
func (t *Table[V]) Len() int { return int(t.size) }

func (t *Table[V]) mask() uint32 { return uint32(len(t.buckets)) - 1 }

func (t *Table[V]) bucketFor(hash uint32) uint32 { return hash & t.mask() }

// find locates key, returning its item index or noItem.
func (t *Table[V]) find(key string, hash uint32) uint32 {
	i := t.buckets[t.bucketFor(hash)]
	for i != noItem {
		it := &t.items[i]
		if it.hash == hash && it.key == key {
			return i
		}
		i = it.next
	}
	return noItem
}

// Get returns the value stored for key, if any.
func (t *Table[V]) Get(key string) (V, bool) {
	i := t.find(key, Hash(key))
	if i == noItem {
		var zero V
		return zero, false
	}
	return t.items[i].value, true
}

// GetHashed is Get with a precomputed hash, for callers that already have it.
func (t *Table[V]) GetHashed(key string, hash uint32) (V, bool) {
	i := t.find(key, hash)
	if i == noItem {
		var zero V
		return zero, false
	}
	return t.items[i].value, true
}

// Index returns the item index of key and true, or 0 and false if absent. Used by callers
// (dict slots) that need a stable handle into the insertion-ordered item
// array rather than a copy of the value.
func (t *Table[V]) Index(key string) (int, bool) {
	i := t.find(key, Hash(key))
	if i == noItem {
		return 0, false
	}
	return int(i), true
}

// At returns the value at a previously-obtained item index.
func (t *Table[V]) At(index int) V { return t.items[index].value }

// SetAt overwrites the value at a previously-obtained item index.
func (t *Table[V]) SetAt(index int, v V) { t.items[index].value = v }

// KeyAt returns the key at a previously-obtained item index.
func (t *Table[V]) KeyAt(index int) string { return t.items[index].key }

// Insert adds a new key/value pair. The caller must ensure key is not
// already present (matching the original's insert_new_unchecked — callers
// that want upsert semantics check with Get/Index first).
func (t *Table[V]) Insert(key string, v V) int {
	return t.insertHashed(key, Hash(key), v)
}

func (t *Table[V]) insertHashed(key string, hash uint32, v V) int {
	idx := t.size
	if idx == noItem {
		panic("ht: too many items (would overflow uint32)")
	}
	t.size++
	bucket := t.bucketFor(hash)
	t.items = append(t.items, item[V]{
		key:   key,
		value: v,
		next:  t.buckets[bucket],
		hash:  hash,
	})
	t.buckets[bucket] = idx

	if uint64(t.size)*4 > uint64(len(t.buckets))*3 {
		t.growBuckets()
	}
	return int(idx)
}

func (t *Table[V]) growBuckets() {
	n := uint32(len(t.buckets)) * 2
	if n == 0 {
		n = 1
	}
	t.buckets = make([]uint32, n)
	for i := range t.buckets {
		t.buckets[i] = noItem
	}
	mask := n - 1
	for i := range t.items {
		b := t.items[i].hash & mask
		t.items[i].next = t.buckets[b]
		t.buckets[b] = uint32(i)
	}
}

// Remove deletes key, returning its value and whether it was present. The
// slot vacated by the removed item is filled by the last item in insertion
// order, and that item's bucket chain is fixed up to point at the new index
// — this is what makes removal O(1) at the cost of insertion order not
// surviving Remove (value.Dict uses the table as is, so its insertion order
// is likewise displaced by removal).
func (t *Table[V]) Remove(key string) (V, bool) {
	hash := Hash(key)
	bucket := t.bucketFor(hash)
	pi := &t.buckets[bucket]
	for *pi != noItem {
		i := *pi
		it := &t.items[i]
		if it.hash == hash && it.key == key {
			v := it.value
			*pi = it.next
			t.popAt(i)
			return v, true
		}
		pi = &it.next
	}
	var zero V
	return zero, false
}

func (t *Table[V]) popAt(idx uint32) {
	last := t.size - 1
	if idx != last {
		lastItem := t.items[last]
		b := lastItem.hash & t.mask()
		pi := &t.buckets[b]
		for *pi != last {
			pi = &t.items[*pi].next
		}
		*pi = idx
		t.items[idx] = lastItem
	}
	t.items = t.items[:last]
	t.size--
}

// IndexedFirst returns the item index of the first occupied bucket at or
// after startBucket, or -1 if none. Used to seed IndexedNext-based
// iteration in bucket order (the dict-iteration builtin's traversal order,
// which is not insertion order).
func (t *Table[V]) IndexedFirst(startBucket uint32) int {
	for b := startBucket; b < uint32(len(t.buckets)); b++ {
		if i := t.buckets[b]; i != noItem {
			return int(i)
		}
	}
	return -1
}

// IndexedNext returns the item index that follows key in bucket-chain/
// bucket-ID order (not insertion order), or -1 if key was the last entry.
func (t *Table[V]) IndexedNext(key string) int {
	hash := Hash(key)
	bucket := t.bucketFor(hash)
	i := t.buckets[bucket]
	for i != noItem {
		it := &t.items[i]
		if it.key == key {
			if it.next != noItem {
				return int(it.next)
			}
			return t.IndexedFirst(bucket + 1)
		}
		i = it.next
	}
	return -1
}

// Each calls f for every entry of items[0:Len()) in insertion order, except
// that Remove moves the last entry into the removed entry's place.
func (t *Table[V]) Each(f func(key string, v V)) {
	for i := uint32(0); i < t.size; i++ {
		f(t.items[i].key, t.items[i].value)
	}
}

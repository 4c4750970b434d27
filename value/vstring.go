package value

import "strconv"

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// String is an immutable-after-construction byte string with a cached
// FNV-1a hash. The hot-append protocol (Begin/Commit) lets the compiler and
// the `~` concatenation operator build one without repeated reallocation:
// Begin grows the backing buffer and hands back a writable window, Commit
// folds the written bytes into the running hash. Every String in this
// module is uniquely owned during construction (nothing observes it until
// it is handed to Str()), so unlike the reference implementation there is
// no need to detect and clone a shared buffer at Begin time.
type String struct {
	buf  []byte
	hash uint32
}

// NewString builds a String from a Go string in one shot.
func NewString(s string) *String {
	r := &String{hash: fnvOffset32}
	r.buf = append(r.buf, s...)
	r.hash = fnvFold(r.hash, r.buf)
	return r
}

// NewStringBuilder starts an empty String for incremental construction via
// Begin/Commit.
func NewStringBuilder() *String {
	return &String{hash: fnvOffset32}
}

// Begin grows the buffer by at least n bytes of headroom and returns the
// writable window; the caller writes at most n bytes into it, then calls
// Commit with however many it actually used.
func (s *String) Begin(n int) []byte {
	if cap(s.buf)-len(s.buf) < n {
		grown := make([]byte, len(s.buf), len(s.buf)+n)
		copy(grown, s.buf)
		s.buf = grown
	}
	return s.buf[len(s.buf) : len(s.buf)+n : len(s.buf)+n]
}

// Commit extends the string by k bytes (which must already have been
// written into the window Begin returned) and folds them into the hash.
func (s *String) Commit(k int) {
	window := s.buf[len(s.buf) : len(s.buf)+k]
	s.hash = fnvFold(s.hash, window)
	s.buf = s.buf[:len(s.buf)+k]
}

// WriteByte appends a single byte (used by the compiler's escape decoder).
func (s *String) WriteByte(b byte) {
	w := s.Begin(1)
	w[0] = b
	s.Commit(1)
}

func fnvFold(h uint32, data []byte) uint32 {
	for _, b := range data {
		h ^= uint32(b)
		h *= fnvPrime32
	}
	return h
}

// Bytes returns the string's raw bytes. The caller must not mutate them.
func (s *String) Bytes() []byte { return s.buf }

// Hash returns the cached FNV-1a hash.
func (s *String) Hash() uint32 { return s.hash }

func (s *String) String() string { return string(s.buf) }

// GoString quotes s the way PRINT renders a string nested inside a
// composite.
func (s *String) GoString() string { return strconv.Quote(string(s.buf)) }

// Len returns the byte length.
func (s *String) Len() int { return len(s.buf) }

// StringsEqual compares by length, then hash, then bytes.
func StringsEqual(a, b *String) bool {
	if a == b {
		return true
	}
	if len(a.buf) != len(b.buf) {
		return false
	}
	if a.hash != b.hash {
		return false
	}
	return string(a.buf) == string(b.buf)
}

// CompareStrings orders a and b by byte content, shorter-is-less on a common
// prefix match.
func CompareStrings(a, b *String) int {
	n := len(a.buf)
	if len(b.buf) < n {
		n = len(b.buf)
	}
	for i := 0; i < n; i++ {
		if a.buf[i] != b.buf[i] {
			if a.buf[i] < b.buf[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a.buf) < len(b.buf):
		return -1
	case len(a.buf) > len(b.buf):
		return 1
	default:
		return 0
	}
}

// Concat returns a ~ b as a new String (the `~` operator coerces non-string
// operands to their Display form before calling this).
func Concat(a, b *String) *String {
	r := &String{hash: a.hash}
	r.buf = make([]byte, 0, len(a.buf)+len(b.buf))
	r.buf = append(r.buf, a.buf...)
	r.buf = append(r.buf, b.buf...)
	r.hash = fnvFold(a.hash, b.buf)
	return r
}

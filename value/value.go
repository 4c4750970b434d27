// Package value implements the tagged value model shared by the compiler's
// constant pool and the VM's stack: numbers, flags, strings, nil, lists,
// dicts, bytecode/native functions and weak references.
//
// Nil and the two flags are process-wide singletons; operations on them are
// no-ops with respect to reference counting. Every other kind is either
// garbage-collector-managed (numbers, strings, functions — nothing in this
// language observes their exact destruction time) or explicitly
// reference-counted (lists and dicts, the two weakrefable kinds, where
// Go's GC offers no deterministic hook for nulling outstanding weak
// references the instant the last strong reference drops — see the design
// notes on this tradeoff).
package value

import (
	"fmt"
	"strings"

	"github.com/shdown/calx/decimal"
)

// Kind discriminates the nine value variants.
type Kind uint8

const (
	KNil Kind = iota
	KFlag
	KNumber
	KString
	KList
	KDict
	KFuncBC
	KFuncNative
	KWeakref
)

func (k Kind) String() string {
	switch k {
	case KNil:
		return "nil"
	case KFlag:
		return "flag"
	case KNumber:
		return "number"
	case KString:
		return "string"
	case KList:
		return "list"
	case KDict:
		return "dict"
	case KFuncBC, KFuncNative:
		return "function"
	case KWeakref:
		return "weakref"
	default:
		return "?"
	}
}

// Value is the universal stack/constant-pool/container-element type.
type Value struct {
	kind Kind
	flag bool
	num  *decimal.Number
	str  *String
	list *List
	dict *Dict
	wref *Weakref
	fn   interface{}
}

// Nil, True and False are the process-wide singletons.
var (
	Nil   = Value{kind: KNil}
	True  = Value{kind: KFlag, flag: true}
	False = Value{kind: KFlag, flag: false}
)

// Bool returns True or False.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Num wraps a decimal number.
func Num(n *decimal.Number) Value { return Value{kind: KNumber, num: n} }

// Str wraps a string.
func Str(s *String) Value { return Value{kind: KString, str: s} }

// ListV wraps a list.
func ListV(l *List) Value { return Value{kind: KList, list: l} }

// DictV wraps a dict.
func DictV(d *Dict) Value { return Value{kind: KDict, dict: d} }

// WeakrefV wraps a weak reference.
func WeakrefV(w *Weakref) Value { return Value{kind: KWeakref, wref: w} }

// BCFunc wraps an opaque bytecode-function handle (concretely a
// *bytecode.BCFunc; kept as interface{} here so this package need not import
// the bytecode package, which itself imports value for the constant pool).
func BCFunc(fn interface{}) Value { return Value{kind: KFuncBC, fn: fn} }

// NativeFunc wraps a host-provided native function.
type NativeFunc struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

// NativeV wraps a native function.
func NativeV(n *NativeFunc) Value { return Value{kind: KFuncNative, fn: n} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KNil }

// Flag returns the boolean payload of a flag value; panics on other kinds
// (callers must check Kind first, matching the VM's guard-before-use
// discipline).
func (v Value) Flag() bool {
	if v.kind != KFlag {
		panic("value: Flag() on non-flag value")
	}
	return v.flag
}

func (v Value) Number() *decimal.Number { return v.num }
func (v Value) String_() *String        { return v.str }
func (v Value) List() *List             { return v.list }
func (v Value) Dict() *Dict             { return v.dict }
func (v Value) Weakref() *Weakref       { return v.wref }

// Func returns the function payload (a *bytecode.BCFunc or *NativeFunc,
// disambiguated by Kind).
func (v Value) Func() interface{} { return v.fn }

// Ref increments the refcount of weakrefable kinds (list, dict); every other
// kind is a no-op, managed by the Go garbage collector.
func (v Value) Ref() Value {
	switch v.kind {
	case KList:
		v.list.refs++
	case KDict:
		v.dict.refs++
	}
	return v
}

// Unref decrements the refcount of weakrefable kinds, releasing (and
// invalidating any outstanding weakrefs) when it reaches zero.
func (v Value) Unref() {
	switch v.kind {
	case KList:
		if v.list.refs--; v.list.refs <= 0 {
			v.list.release()
		}
	case KDict:
		if v.dict.refs--; v.dict.refs <= 0 {
			v.dict.release()
		}
	}
}

// Equal implements value equality: same kind, same payload. Numbers compare
// by decimal value (not representation); strings by length-then-hash-then-
// bytes; containers by recursive element equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KNil:
		return true
	case KFlag:
		return a.flag == b.flag
	case KNumber:
		return decimal.Compare(a.num, b.num) == decimal.Equal
	case KString:
		return StringsEqual(a.str, b.str)
	case KList:
		if len(a.list.items) != len(b.list.items) {
			return false
		}
		for i := range a.list.items {
			if !Equal(a.list.items[i], b.list.items[i]) {
				return false
			}
		}
		return true
	case KDict:
		if a.dict.Len() != b.dict.Len() {
			return false
		}
		eq := true
		a.dict.Each(func(k string, v Value) {
			bv, ok := b.dict.Get(k)
			if !ok || !Equal(v, bv) {
				eq = false
			}
		})
		return eq
	case KWeakref:
		return a.wref == b.wref
	case KFuncBC, KFuncNative:
		return a.fn == b.fn
	}
	return false
}

// Repr renders v the way PRINT does: nil suppressed by the caller, strings
// unescaped verbatim, composites written JSON-ish with a recursion depth cap
// of 3 (deeper levels render as "...").
func Repr(v Value, depth int) string {
	switch v.kind {
	case KNil:
		return "nil"
	case KFlag:
		if v.flag {
			return "true"
		}
		return "false"
	case KNumber:
		return v.num.String()
	case KString:
		return v.str.GoString()
	case KList:
		if depth >= 3 {
			return "..."
		}
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range v.list.items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Repr(e, depth+1))
		}
		b.WriteByte(']')
		return b.String()
	case KDict:
		if depth >= 3 {
			return "..."
		}
		var b strings.Builder
		b.WriteByte('{')
		first := true
		v.dict.Each(func(k string, val Value) {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%q: %s", k, Repr(val, depth+1))
		})
		b.WriteByte('}')
		return b.String()
	case KFuncBC, KFuncNative:
		return "<function>"
	case KWeakref:
		return "<weakref>"
	default:
		return "<?>"
	}
}

// Display is what PRINT writes to stdout for a top-level value: nil prints
// nothing (the caller should skip the call entirely), strings print their
// raw bytes unescaped, everything else uses Repr.
func Display(v Value) string {
	if v.kind == KString {
		return v.str.String()
	}
	return Repr(v, 0)
}

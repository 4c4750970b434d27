package value_test

import (
	"testing"

	"github.com/shdown/calx/decimal"
	"github.com/shdown/calx/value"
)

func TestStringEqualityAndHash(t *testing.T) {
	a := value.NewString("hello")
	b := value.NewString("hello")
	c := value.NewString("world")
	if !value.StringsEqual(a, b) {
		t.Error("equal strings compared unequal")
	}
	if a.Hash() != b.Hash() {
		t.Error("equal strings have different hashes")
	}
	if value.StringsEqual(a, c) {
		t.Error("different strings compared equal")
	}
}

func TestStringConcatFold(t *testing.T) {
	a := value.NewString("foo")
	b := value.NewString("bar")
	direct := value.NewString("foobar")
	concat := value.Concat(a, b)
	if concat.String() != "foobar" {
		t.Fatalf("Concat = %q, want foobar", concat.String())
	}
	if concat.Hash() != direct.Hash() {
		t.Errorf("Concat hash = %d, direct hash = %d; want equal (fnv_fold property)", concat.Hash(), direct.Hash())
	}
}

func TestStringBuilder(t *testing.T) {
	b := value.NewStringBuilder()
	for _, c := range "abc" {
		b.WriteByte(byte(c))
	}
	if b.String() != "abc" {
		t.Fatalf("builder = %q, want abc", b.String())
	}
	direct := value.NewString("abc")
	if b.Hash() != direct.Hash() {
		t.Errorf("builder hash = %d, direct hash = %d", b.Hash(), direct.Hash())
	}
}

func TestListAppendPop(t *testing.T) {
	l := value.NewList()
	for i := 0; i < 10; i++ {
		l.Append(value.Num(decimal.FromInt64(int64(i))))
	}
	if l.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", l.Len())
	}
	v, ok := l.Pop()
	if !ok {
		t.Fatal("Pop() on non-empty list failed")
	}
	if decimal.Compare(v.Number(), decimal.FromInt64(9)) != decimal.Equal {
		t.Errorf("Pop() = %v, want 9", v.Number())
	}
	if l.Len() != 9 {
		t.Fatalf("Len() after pop = %d, want 9", l.Len())
	}
}

func TestDictInsertionOrderAndRemove(t *testing.T) {
	d := value.NewDict()
	d.Set("a", value.Num(decimal.FromInt64(1)))
	d.Set("b", value.Num(decimal.FromInt64(2)))
	d.Set("c", value.Num(decimal.FromInt64(3)))

	var order []string
	d.Each(func(k string, v value.Value) { order = append(order, k) })
	want := []string{"a", "b", "c"}
	for i, k := range want {
		if order[i] != k {
			t.Errorf("order[%d] = %q, want %q", i, order[i], k)
		}
	}

	if !d.Remove("a") {
		t.Fatal("Remove(a) failed")
	}
	if d.Len() != 2 {
		t.Fatalf("Len() after remove = %d, want 2", d.Len())
	}
	order = nil
	d.Each(func(k string, v value.Value) { order = append(order, k) })
	if len(order) != 2 {
		t.Fatalf("order after remove has %d entries, want 2", len(order))
	}
}

func TestDictNextKeyIteration(t *testing.T) {
	d := value.NewDict()
	d.Set("a", value.Num(decimal.FromInt64(1)))
	d.Set("b", value.Num(decimal.FromInt64(2)))

	seen := map[string]bool{}
	k, ok := d.NextKey("", false)
	for ok {
		seen[k] = true
		k, ok = d.NextKey(k, true)
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("NextKey iteration missed entries: %v", seen)
	}
}

func TestWeakrefNullsOnRelease(t *testing.T) {
	l := value.NewList()
	lv := value.ListV(l)
	w, err := value.NewWeakref(lv)
	if err != nil {
		t.Fatal(err)
	}
	live := w.Deref()
	if live.IsNil() {
		t.Fatal("Deref() of a live target returned nil")
	}
	live.Unref() // release the strong reference Deref handed out
	lv.Unref()   // drop the last strong reference
	if !w.Deref().IsNil() {
		t.Error("Deref() after target release did not return nil")
	}
}

func TestWeakrefOnDict(t *testing.T) {
	d := value.NewDict()
	dv := value.DictV(d)
	w, err := value.NewWeakref(dv)
	if err != nil {
		t.Fatal(err)
	}
	dv.Unref()
	if !w.Deref().IsNil() {
		t.Error("Deref() after dict release did not return nil")
	}
}

func TestWeakrefRejectsNonWeakrefable(t *testing.T) {
	if _, err := value.NewWeakref(value.Num(decimal.FromInt64(1))); err == nil {
		t.Error("NewWeakref on a number should fail")
	}
	if _, err := value.NewWeakref(value.Str(value.NewString("x"))); err == nil {
		t.Error("NewWeakref on a string should fail")
	}
}

func TestEqual(t *testing.T) {
	if !value.Equal(value.Num(decimal.FromInt64(1)), value.Num(decimal.FromInt64(1))) {
		t.Error("equal numbers compared unequal")
	}
	if value.Equal(value.Num(decimal.FromInt64(1)), value.Num(decimal.FromInt64(2))) {
		t.Error("unequal numbers compared equal")
	}
	if !value.Equal(value.Nil, value.Nil) {
		t.Error("Nil != Nil")
	}
	if value.Equal(value.Nil, value.False) {
		t.Error("Nil == False")
	}
}

func TestRepr(t *testing.T) {
	l := value.NewList()
	l.Append(value.Num(decimal.FromInt64(1)))
	l.Append(value.Str(value.NewString("x")))
	got := value.Repr(value.ListV(l), 0)
	want := `[1, "x"]`
	if got != want {
		t.Errorf("Repr = %q, want %q", got, want)
	}
}

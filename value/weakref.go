package value

import "fmt"

// Weakrefable is implemented by the value kinds that can be the target of a
// weak reference: List and Dict.
type Weakrefable interface {
	weakHeadPtr() *weakHead
}

func (l *List) weakHeadPtr() *weakHead { return &l.weak }
func (d *Dict) weakHeadPtr() *weakHead { return &d.weak }

// Weakref holds a nullable pointer to a weakrefable target plus the
// intrusive list links used to find it when the target is released. The
// target pointer is never itself a strong reference — Ref/Unref on a
// Weakref value do not touch the target's refcount.
type Weakref struct {
	target     Weakrefable
	targetKind Kind
	prev, next *Weakref
}

// NewWeakref creates a weak reference to v, which must be a list or dict.
func NewWeakref(v Value) (*Weakref, error) {
	var wr Weakrefable
	switch v.kind {
	case KList:
		wr = v.list
	case KDict:
		wr = v.dict
	default:
		return nil, fmt.Errorf("cannot take a weak reference to a %s", v.kind)
	}
	w := &Weakref{target: wr, targetKind: v.kind}
	wr.weakHeadPtr().insert(w)
	return w, nil
}

// Deref returns a strong reference to the target, or Nil if the target has
// since been released.
func (w *Weakref) Deref() Value {
	if w.target == nil {
		return Nil
	}
	switch w.targetKind {
	case KList:
		return ListV(w.target.(*List)).Ref()
	case KDict:
		return DictV(w.target.(*Dict)).Ref()
	default:
		return Nil
	}
}

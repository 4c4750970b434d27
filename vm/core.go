package vm

import (
	"fmt"
	"strconv"

	"github.com/shdown/calx/bytecode"
	"github.com/shdown/calx/decimal"
	"github.com/shdown/calx/value"
)

// Run executes chunk in a fresh entry frame and returns the value its
// implicit trailing `nil; return` (or an explicit top-level return) produces.
// A panicking RuntimeError is recovered and returned as err; any other
// panic propagates, mirroring the reference VM's Run.
//
// Run is reentrant: a host builtin (LoadString, Require) may call it again
// from inside a native function invoked mid-dispatch. dispatch is handed
// the frame depth Run started at and stops exactly when unwinding returns
// to that depth, leaving any frames below (the caller's) untouched.
func (i *Instance) Run(chunk *bytecode.Chunk) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(*RuntimeError)
			if !ok {
				panic(r)
			}
			err = re
			result = value.Nil
		}
	}()

	stopDepth := len(i.frames)
	shape := chunk.Shapes[0]
	localsBase := i.sp
	i.ensureStack(shape.NLocals + shape.MaxStack)
	for k := 0; k < shape.NLocals; k++ {
		i.stack[localsBase+k] = value.Nil
	}
	i.sp = localsBase + shape.NLocals
	i.frames = append(i.frames, frame{chunk: chunk, shapeIdx: 0, ip: 0, localsBase: localsBase})

	result = i.dispatch(stopDepth)
	return result, nil
}

// dispatch runs the fetch-decode-execute loop until the frame stack unwinds
// back to stopDepth. f is refreshed from i.curFrame() at the top of every
// iteration; within one iteration it must not be read again after any call
// that can append to i.frames (doCall), since append may relocate the
// backing array.
func (i *Instance) dispatch(stopDepth int) value.Value {
	for {
		f := i.curFrame()
		instr := f.chunk.Instrs[f.ip]
		i.insCount++

		switch instr.Op() {
		case bytecode.OpLoadConst:
			i.push(f.chunk.Consts[instr.C()].Ref())
		case bytecode.OpLoadLocal:
			i.push(i.stack[f.localsBase+int(instr.C())].Ref())
		case bytecode.OpLoadGlobal:
			i.push(i.globals[instr.C()].Ref())
		case bytecode.OpLoadAt:
			i.doLoadAt()
		case bytecode.OpStoreLocal:
			v := i.pop()
			slot := f.localsBase + int(instr.C())
			i.stack[slot].Unref()
			i.stack[slot] = v
		case bytecode.OpStoreGlobal:
			v := i.pop()
			idx := instr.C()
			i.globals[idx].Unref()
			i.globals[idx] = v
		case bytecode.OpStoreAt:
			i.doStoreAt()
		case bytecode.OpModifyLocal:
			i.modifyLocal(bytecode.AOp(instr.A()), f.localsBase+int(instr.C()))
		case bytecode.OpModifyGlobal:
			i.modifyGlobal(bytecode.AOp(instr.A()), int(instr.C()))
		case bytecode.OpModifyAt:
			i.modifyAt(bytecode.AOp(instr.A()))

		case bytecode.OpPrint:
			v := i.pop()
			if !v.IsNil() {
				fmt.Fprintln(i.out, value.Display(v))
			}
			v.Unref()
		case bytecode.OpPop:
			i.pop().Unref()

		case bytecode.OpReturn:
			ret := i.pop()
			done, final := i.returnFrame(*f, ret, stopDepth)
			if done {
				return final
			}
			continue

		case bytecode.OpJump:
			f.ip = int(instr.C())
			continue
		case bytecode.OpJumpUnless:
			cond := i.pop()
			t := truthy(cond)
			cond.Unref()
			if !t {
				f.ip = int(instr.C())
				continue
			}

		case bytecode.OpCall:
			// Advance past CALL before doCall can push a new frame: a
			// pushFrame append may relocate i.frames, stranding f.
			f.ip++
			i.doCall(instr)
			continue

		case bytecode.OpFunction:
			shapeIdx := int(instr.C())
			bc := &bytecode.BCFunc{Chunk: f.chunk, IP: f.ip, Shape: shapeIdx}
			i.push(value.BCFunc(bc))
			f.ip += 1 + f.chunk.Shapes[shapeIdx].Offset
			continue

		case bytecode.OpAOP:
			b := i.pop()
			a := i.pop()
			result := i.applyAOp(bytecode.AOp(instr.A()), a, b)
			a.Unref()
			b.Unref()
			i.push(result)
		case bytecode.OpCmp2Way:
			i.doCmp2(instr.A() != 0)
		case bytecode.OpCmp3Way:
			i.doCmp3(instr.A())
		case bytecode.OpNeg:
			i.doNeg()
		case bytecode.OpNot:
			i.doNot()
		case bytecode.OpLen:
			i.doLen()

		case bytecode.OpList:
			i.doList(int(instr.C()))
		case bytecode.OpDict:
			i.doDict(int(instr.C()))

		default:
			i.raise("unhandled opcode %s", instr.Op())
		}
		f.ip++
	}
}

// returnFrame tears down f (releasing every local and working-stack slot it
// owned) and either hands ret back to Run (the frame stack has unwound to
// stopDepth) or pushes it onto the resumed caller's stack.
func (i *Instance) returnFrame(f frame, ret value.Value, stopDepth int) (done bool, final value.Value) {
	for k := f.localsBase; k < i.sp; k++ {
		i.stack[k].Unref()
		i.stack[k] = value.Nil
	}
	i.sp = f.localsBase
	i.frames = i.frames[:len(i.frames)-1]
	if len(i.frames) == stopDepth {
		return true, ret
	}
	i.push(ret)
	return false, value.Nil
}

// doCall pops the callee and its arguments (per instr's scatter-aware
// encoding) and either starts a new bytecode frame or invokes a native
// function directly, pushing its result onto the current frame.
func (i *Instance) doCall(instr bytecode.Instr) {
	callee, args := i.collectArgs(instr)
	switch callee.Kind() {
	case value.KFuncBC:
		i.pushFrame(callee.Func().(*bytecode.BCFunc), args)
	case value.KFuncNative:
		nf := callee.Func().(*value.NativeFunc)
		result, err := nf.Fn(args)
		for _, a := range args {
			a.Unref()
		}
		if err != nil {
			i.raiseErr(err)
		}
		i.push(result)
	default:
		for _, a := range args {
			a.Unref()
		}
		i.raise("cannot call a %s value", callee.Kind())
	}
}

// collectArgs pops the instruction's operand span off the stack: the callee,
// then (innermost-first in push order) its fixed arguments, then, if the
// scatter flag is set, a trailing list whose elements are spread onto the
// end of the argument list.
func (i *Instance) collectArgs(instr bytecode.Instr) (callee value.Value, args []value.Value) {
	c := int(instr.C())
	scatter := instr.A() != 0

	var scatterList value.Value
	if scatter {
		scatterList = i.pop()
	}
	fixed := make([]value.Value, c)
	for k := c - 1; k >= 0; k-- {
		fixed[k] = i.pop()
	}
	callee = i.pop()

	if !scatter {
		return callee, fixed
	}
	if scatterList.Kind() != value.KList {
		for _, a := range fixed {
			a.Unref()
		}
		scatterList.Unref()
		callee.Unref()
		i.raise("cannot scatter a %s value", scatterList.Kind())
	}
	items := scatterList.List().Items()
	args = make([]value.Value, 0, c+len(items))
	args = append(args, fixed...)
	for _, v := range items {
		args = append(args, v.Ref())
	}
	scatterList.Unref()
	return callee, args
}

// pushFrame checks arity, binds args (gathering the tail into a list for a
// variadic shape), zero-fills the remaining locals and opens a new frame at
// the chunk's FUNCTION+1 instruction.
func (i *Instance) pushFrame(bc *bytecode.BCFunc, args []value.Value) {
	shape := bc.Chunk.Shapes[bc.Shape]
	min := shape.MinArgs()
	if shape.Variadic() {
		if len(args) < min {
			for _, a := range args {
				a.Unref()
			}
			i.raise("function expects at least %d arguments, got %d", min, len(args))
		}
	} else if len(args) != min {
		for _, a := range args {
			a.Unref()
		}
		i.raise("function expects %d arguments, got %d", min, len(args))
	}

	localsBase := i.sp
	i.ensureStack(shape.NLocals + shape.MaxStack)

	if shape.Variadic() {
		for k := 0; k < min; k++ {
			i.stack[localsBase+k] = args[k]
		}
		rest := value.NewList()
		for _, v := range args[min:] {
			rest.Append(v)
		}
		i.stack[localsBase+min] = value.ListV(rest)
		for k := min + 1; k < shape.NLocals; k++ {
			i.stack[localsBase+k] = value.Nil
		}
	} else {
		for k, v := range args {
			i.stack[localsBase+k] = v
		}
		for k := len(args); k < shape.NLocals; k++ {
			i.stack[localsBase+k] = value.Nil
		}
	}
	i.sp = localsBase + shape.NLocals

	i.frames = append(i.frames, frame{
		chunk:      bc.Chunk,
		shapeIdx:   bc.Shape,
		ip:         bc.IP + 1,
		localsBase: localsBase,
	})
}

func (i *Instance) modifyLocal(aop bytecode.AOp, slot int) {
	rhs := i.pop()
	cur := i.stack[slot]
	result := i.applyAOp(aop, cur, rhs)
	cur.Unref()
	rhs.Unref()
	i.stack[slot] = result
}

func (i *Instance) modifyGlobal(aop bytecode.AOp, idx int) {
	rhs := i.pop()
	cur := i.globals[idx]
	result := i.applyAOp(aop, cur, rhs)
	cur.Unref()
	rhs.Unref()
	i.globals[idx] = result
}

func (i *Instance) modifyAt(aop bytecode.AOp) {
	rhs := i.pop()
	idx := i.pop()
	container := i.pop()
	cur := i.indexGet(container, idx)
	result := i.applyAOp(aop, cur, rhs)
	cur.Unref()
	rhs.Unref()
	i.indexSet(container, idx, result)
	idx.Unref()
	container.Unref()
}

func (i *Instance) doLoadAt() {
	idx := i.pop()
	container := i.pop()
	result := i.indexGet(container, idx)
	idx.Unref()
	container.Unref()
	i.push(result)
}

func (i *Instance) doStoreAt() {
	rhs := i.pop()
	idx := i.pop()
	container := i.pop()
	i.indexSet(container, idx, rhs)
	idx.Unref()
	container.Unref()
}

// indexGet reads container[idx], returning an owned value: a fresh Ref()
// on a List/Dict element, a one-byte String for string indexing, or Nil for
// a missing dict key.
func (i *Instance) indexGet(container, idx value.Value) value.Value {
	switch container.Kind() {
	case value.KList:
		l := container.List()
		n := i.requireIndex(idx, l.Len())
		return l.Get(n).Ref()
	case value.KDict:
		if idx.Kind() != value.KString {
			i.raise("dict keys must be strings, got %s", idx.Kind())
		}
		v, ok := container.Dict().Get(idx.String_().String())
		if !ok {
			return value.Nil
		}
		return v.Ref()
	case value.KString:
		s := container.String_()
		n := i.requireIndex(idx, s.Len())
		return value.Str(value.NewString(string([]byte{s.Bytes()[n]})))
	default:
		i.raise("cannot index a %s value", container.Kind())
	}
	return value.Nil
}

func (i *Instance) indexSet(container, idx, v value.Value) {
	switch container.Kind() {
	case value.KList:
		l := container.List()
		n := i.requireIndex(idx, l.Len())
		l.Set(n, v)
	case value.KDict:
		if idx.Kind() != value.KString {
			v.Unref()
			i.raise("dict keys must be strings, got %s", idx.Kind())
		}
		container.Dict().Set(idx.String_().String(), v)
	default:
		v.Unref()
		i.raise("cannot index-assign a %s value", container.Kind())
	}
}

// requireIndex truncates idx to an integer and resolves a negative offset
// against length, raising if idx isn't a number or the result is out of
// range.
func (i *Instance) requireIndex(idx value.Value, length int) int {
	n, ok := numberIndex(idx)
	if !ok {
		i.raise("index must be an integer, got %s", idx.Kind())
	}
	if n < 0 {
		n += length
	}
	if n < 0 || n >= length {
		i.raise("index %d out of range (length %d)", n, length)
	}
	return n
}

func numberIndex(v value.Value) (int, bool) {
	if v.Kind() != value.KNumber {
		return 0, false
	}
	t := decimal.Trunc(v.Number())
	n, err := strconv.ParseInt(t.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func (i *Instance) doList(n int) {
	items := make([]value.Value, n)
	for k := n - 1; k >= 0; k-- {
		items[k] = i.pop()
	}
	l := value.NewList()
	for _, v := range items {
		l.Append(v)
	}
	i.push(value.ListV(l))
}

func (i *Instance) doDict(n int) {
	type pair struct{ k, v value.Value }
	pairs := make([]pair, n)
	for k := n - 1; k >= 0; k-- {
		v := i.pop()
		key := i.pop()
		pairs[k] = pair{key, v}
	}
	d := value.NewDict()
	for _, p := range pairs {
		if p.k.Kind() != value.KString {
			i.raise("dict keys must be strings, got %s", p.k.Kind())
		}
		d.Set(p.k.String_().String(), p.v)
		p.k.Unref()
	}
	i.push(value.DictV(d))
}

func (i *Instance) doCmp2(wantEq bool) {
	b := i.pop()
	a := i.pop()
	eq := value.Equal(a, b)
	a.Unref()
	b.Unref()
	i.push(value.Bool(eq == wantEq))
}

func (i *Instance) doCmp3(mask uint8) {
	b := i.pop()
	a := i.pop()
	if a.Kind() != value.KNumber || b.Kind() != value.KNumber {
		a.Unref()
		b.Unref()
		i.raise("comparison on non-number operands (%s, %s)", a.Kind(), b.Kind())
	}
	cmp := decimal.Compare(a.Number(), b.Number())
	a.Unref()
	b.Unref()
	i.push(value.Bool(int(cmp)&int(mask) != 0))
}

func (i *Instance) doNeg() {
	v := i.pop()
	if v.Kind() != value.KNumber {
		v.Unref()
		i.raise("cannot negate a %s value", v.Kind())
	}
	result := value.Num(decimal.Negate(v.Number()))
	v.Unref()
	i.push(result)
}

func (i *Instance) doNot() {
	v := i.pop()
	t := truthy(v)
	v.Unref()
	i.push(value.Bool(!t))
}

func (i *Instance) doLen() {
	v := i.pop()
	var n int
	switch v.Kind() {
	case value.KString:
		n = v.String_().Len()
	case value.KList:
		n = v.List().Len()
	case value.KDict:
		n = v.Dict().Len()
	default:
		v.Unref()
		i.raise("cannot take the length of a %s value", v.Kind())
	}
	v.Unref()
	i.push(value.Num(decimal.FromInt64(int64(n))))
}

// applyAOp dispatches one AOP/MODIFY_* sub-operation. Concat is the only one
// that accepts non-number operands (two lists are joined; otherwise each
// operand is turned into its display string); everything else requires both
// operands to be numbers.
func (i *Instance) applyAOp(op bytecode.AOp, a, b value.Value) value.Value {
	if op == bytecode.AOpConcat {
		return i.doConcat(a, b)
	}
	if a.Kind() != value.KNumber || b.Kind() != value.KNumber {
		i.raise("arithmetic on non-number operands (%s, %s)", a.Kind(), b.Kind())
	}
	na, nb := a.Number(), b.Number()
	switch op {
	case bytecode.AOpAdd:
		return value.Num(decimal.Add(na, nb))
	case bytecode.AOpSub:
		return value.Num(decimal.Sub(na, nb))
	case bytecode.AOpMul:
		return value.Num(decimal.Mul(na, nb))
	case bytecode.AOpDiv:
		r, err := decimal.Div(na, nb, decimal.NTPFromPrecision(i.scale))
		if err != nil {
			i.raiseErr(err)
		}
		return value.Num(r)
	case bytecode.AOpIDiv:
		r, err := decimal.IDiv(na, nb)
		if err != nil {
			i.raiseErr(err)
		}
		return value.Num(r)
	case bytecode.AOpIMod:
		r, err := decimal.IMod(na, nb)
		if err != nil {
			i.raiseErr(err)
		}
		return value.Num(r)
	case bytecode.AOpPow:
		r, err := decimal.Pow(na, nb)
		if err != nil {
			i.raiseErr(err)
		}
		return value.Num(r)
	case bytecode.AOpBAnd:
		return value.Num(decimal.BitAnd(na, nb))
	case bytecode.AOpBOr:
		return value.Num(decimal.BitOr(na, nb))
	case bytecode.AOpBXor:
		return value.Num(decimal.BitXor(na, nb))
	case bytecode.AOpBShl:
		return value.Num(decimal.BitShl(na, nb))
	case bytecode.AOpBLshr:
		return value.Num(decimal.BitLshr(na, nb))
	}
	i.raise("unknown arithmetic operation %d", op)
	return value.Nil
}

func (i *Instance) doConcat(a, b value.Value) value.Value {
	if a.Kind() == value.KList && b.Kind() == value.KList {
		r := value.NewList()
		for _, v := range a.List().Items() {
			r.Append(v.Ref())
		}
		for _, v := range b.List().Items() {
			r.Append(v.Ref())
		}
		return value.ListV(r)
	}
	if a.Kind() == value.KList || b.Kind() == value.KList {
		i.raise("cannot concatenate %s and %s", a.Kind(), b.Kind())
	}
	as, bs := concatOperand(a), concatOperand(b)
	return value.Str(value.Concat(as, bs))
}

// concatOperand renders a `~` operand as a String: strings pass through
// unchanged, everything else coerces via its Display form (so `1 ~ "x"`
// yields "1x"), matching the concat-coerces-numbers example in the language
// surface description.
func concatOperand(v value.Value) *value.String {
	if v.Kind() == value.KString {
		return v.String_()
	}
	return value.NewString(value.Display(v))
}

func truthy(v value.Value) bool {
	switch v.Kind() {
	case value.KNil:
		return false
	case value.KFlag:
		return v.Flag()
	case value.KNumber:
		return !v.Number().IsZero()
	case value.KString:
		return v.String_().Len() != 0
	case value.KList:
		return v.List().Len() != 0
	case value.KDict:
		return v.Dict().Len() != 0
	default:
		return true
	}
}

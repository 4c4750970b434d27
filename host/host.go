// Package host implements the native bridge: the built-in functions a
// running chunk sees as ordinary globals, bridging to I/O, the clock,
// randomness, base conversion and weak references, plus the two
// compile-and-run entry points (LoadString, Require) that let bytecode
// invoke the compiler reentrantly against the same Instance.
package host

import (
	"bufio"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shdown/calx/compiler"
	"github.com/shdown/calx/decimal"
	"github.com/shdown/calx/value"
	"github.com/shdown/calx/vm"
)

// Install registers every native builtin into i, reading Input/RawRead from
// in. Call it once, right after vm.New.
func Install(i *vm.Instance, in io.Reader) {
	r := bufio.NewReader(in)

	reg := func(name string, fn func(args []value.Value) (value.Value, error)) {
		i.SetGlobal(name, value.NativeV(&value.NativeFunc{Name: name, Fn: fn}))
	}

	reg("Kind", biKind)
	reg("Pop", biPop)
	reg("NextKey", biNextKey)
	reg("RemoveKey", biRemoveKey)
	reg("Input", func(args []value.Value) (value.Value, error) { return biInput(i, r, args) })
	reg("RawRead", func(args []value.Value) (value.Value, error) { return biRawRead(r, args) })
	reg("RawWrite", func(args []value.Value) (value.Value, error) { return biRawWrite(i, args) })
	reg("Clock", biClock)
	reg("Scale", func(args []value.Value) (value.Value, error) { return biScale(i, args) })
	reg("Random32", biRandom32)
	reg("trunc", unaryRound("trunc", decimal.Trunc))
	reg("floor", unaryRound("floor", decimal.Floor))
	reg("ceil", unaryRound("ceil", decimal.Ceil))
	reg("round", unaryRound("round", decimal.Round))
	reg("frac", unaryRound("frac", decimal.Frac))
	reg("Encode", biEncode)
	reg("Decode", func(args []value.Value) (value.Value, error) { return biDecode(i, args) })
	reg("NumDigits", biNumDigits)
	reg("UpScale", biUpScale)
	reg("DownScale", biDownScale)
	reg("Wref", biWref)
	reg("Wvalue", biWvalue)
	reg("LoadString", func(args []value.Value) (value.Value, error) { return biLoadString(i, args) })
	reg("Require", func(args []value.Value) (value.Value, error) { return biRequire(i, args) })
}

func guardn(name string, args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func guardnRange(name string, args []value.Value, min, max int) error {
	if len(args) < min || len(args) > max {
		return fmt.Errorf("%s: expected %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

func guardv(name string, args []value.Value, idx int, kind value.Kind) error {
	if args[idx].Kind() != kind {
		return fmt.Errorf("%s: argument %d must be a %s, got %s", name, idx+1, kind, args[idx].Kind())
	}
	return nil
}

func guardvOpt(name string, args []value.Value, idx int, kind value.Kind) error {
	if k := args[idx].Kind(); k != value.KNil && k != kind {
		return fmt.Errorf("%s: argument %d must be nil or a %s, got %s", name, idx+1, kind, k)
	}
	return nil
}

// numberToInt truncates n and converts it to an int, reporting failure for
// magnitudes too large to represent.
func numberToInt(n *decimal.Number) (int, bool) {
	v, err := strconv.ParseInt(decimal.Trunc(n).String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func biKind(args []value.Value) (value.Value, error) {
	if err := guardn("Kind", args, 1); err != nil {
		return value.Nil, err
	}
	return value.Str(value.NewString(args[0].Kind().String())), nil
}

func biPop(args []value.Value) (value.Value, error) {
	if err := guardn("Pop", args, 1); err != nil {
		return value.Nil, err
	}
	if err := guardv("Pop", args, 0, value.KList); err != nil {
		return value.Nil, err
	}
	v, ok := args[0].List().Pop()
	if !ok {
		return value.Nil, nil
	}
	return v, nil
}

func biNextKey(args []value.Value) (value.Value, error) {
	if err := guardn("NextKey", args, 2); err != nil {
		return value.Nil, err
	}
	if err := guardv("NextKey", args, 0, value.KDict); err != nil {
		return value.Nil, err
	}
	if err := guardvOpt("NextKey", args, 1, value.KString); err != nil {
		return value.Nil, err
	}
	hasKey := args[1].Kind() == value.KString
	var key string
	if hasKey {
		key = args[1].String_().String()
	}
	next, ok := args[0].Dict().NextKey(key, hasKey)
	if !ok {
		return value.Nil, nil
	}
	return value.Str(value.NewString(next)), nil
}

func biRemoveKey(args []value.Value) (value.Value, error) {
	if err := guardn("RemoveKey", args, 2); err != nil {
		return value.Nil, err
	}
	if err := guardv("RemoveKey", args, 0, value.KDict); err != nil {
		return value.Nil, err
	}
	if err := guardv("RemoveKey", args, 1, value.KString); err != nil {
		return value.Nil, err
	}
	return value.Bool(args[0].Dict().Remove(args[1].String_().String())), nil
}

func biInput(i *vm.Instance, r *bufio.Reader, args []value.Value) (value.Value, error) {
	if err := guardnRange("Input", args, 0, 1); err != nil {
		return value.Nil, err
	}
	if len(args) == 1 {
		if err := guardv("Input", args, 0, value.KString); err != nil {
			return value.Nil, err
		}
		fmt.Fprint(i.Output(), args[0].String_().String())
	}
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return value.Nil, nil
	}
	return value.Str(value.NewString(strings.TrimRight(line, "\r\n"))), nil
}

func biRawRead(r *bufio.Reader, args []value.Value) (value.Value, error) {
	if err := guardn("RawRead", args, 1); err != nil {
		return value.Nil, err
	}
	if err := guardv("RawRead", args, 0, value.KString); err != nil {
		return value.Nil, err
	}
	switch args[0].String_().String() {
	case "L":
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return value.Nil, nil
		}
		return value.Str(value.NewString(strings.TrimRight(line, "\n"))), nil
	case "s":
		b, err := r.ReadByte()
		if err != nil {
			return value.Nil, nil
		}
		return value.Str(value.NewString(string([]byte{b}))), nil
	case "B":
		b, err := r.ReadByte()
		if err != nil {
			return value.Nil, nil
		}
		return value.Num(decimal.FromInt64(int64(b))), nil
	default:
		return value.Nil, fmt.Errorf("RawRead: unknown mode %q", args[0].String_().String())
	}
}

func biRawWrite(i *vm.Instance, args []value.Value) (value.Value, error) {
	if err := guardn("RawWrite", args, 1); err != nil {
		return value.Nil, err
	}
	if err := guardv("RawWrite", args, 0, value.KString); err != nil {
		return value.Nil, err
	}
	n, err := i.Output().Write(args[0].String_().Bytes())
	if err != nil {
		return value.Nil, errors.Wrap(err, "RawWrite")
	}
	return value.Num(decimal.FromInt64(int64(n))), nil
}

// biClock reports the wall clock as seconds.nanoseconds, matching §4.7's
// "9 fractional digits" contract exactly since time.Time's nanosecond
// component is itself 9 digits wide.
func biClock(args []value.Value) (value.Value, error) {
	if err := guardn("Clock", args, 0); err != nil {
		return value.Nil, err
	}
	now := time.Now()
	n, err := decimal.Parse(fmt.Sprintf("%d.%09d", now.Unix(), now.Nanosecond()))
	if err != nil {
		return value.Nil, errors.Wrap(err, "Clock")
	}
	return value.Num(n), nil
}

func biScale(i *vm.Instance, args []value.Value) (value.Value, error) {
	if err := guardnRange("Scale", args, 0, 1); err != nil {
		return value.Nil, err
	}
	if len(args) == 0 {
		return value.Num(decimal.FromInt64(int64(i.Scale()))), nil
	}
	if err := guardv("Scale", args, 0, value.KNumber); err != nil {
		return value.Nil, err
	}
	n, ok := numberToInt(args[0].Number())
	if !ok || n < 0 {
		return value.Nil, fmt.Errorf("Scale: argument must be a non-negative integer")
	}
	i.SetScale(n)
	return value.Nil, nil
}

func biRandom32(args []value.Value) (value.Value, error) {
	if err := guardn("Random32", args, 0); err != nil {
		return value.Nil, err
	}
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return value.Nil, errors.Wrap(err, "Random32")
	}
	return value.Num(decimal.FromInt64(int64(binary.BigEndian.Uint32(buf[:])))), nil
}

func unaryRound(name string, f func(*decimal.Number) *decimal.Number) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		if err := guardn(name, args, 1); err != nil {
			return value.Nil, err
		}
		if err := guardv(name, args, 0, value.KNumber); err != nil {
			return value.Nil, err
		}
		return value.Num(f(args[0].Number())), nil
	}
}

func biEncode(args []value.Value) (value.Value, error) {
	if err := guardnRange("Encode", args, 2, 3); err != nil {
		return value.Nil, err
	}
	if err := guardv("Encode", args, 0, value.KNumber); err != nil {
		return value.Nil, err
	}
	if err := guardv("Encode", args, 1, value.KNumber); err != nil {
		return value.Nil, err
	}
	base, ok := numberToInt(args[1].Number())
	if !ok || base < 2 || base > 36 {
		return value.Nil, fmt.Errorf("Encode: base must be an integer in 2..36")
	}
	num := args[0].Number()
	nfrac := num.NumFracDigits()
	if len(args) == 3 {
		if err := guardv("Encode", args, 2, value.KNumber); err != nil {
			return value.Nil, err
		}
		n, ok := numberToInt(args[2].Number())
		if !ok || n < 0 {
			return value.Nil, fmt.Errorf("Encode: scale must be a non-negative integer")
		}
		nfrac = n
	}
	return value.Str(value.NewString(num.Format(base, nfrac))), nil
}

func biDecode(i *vm.Instance, args []value.Value) (value.Value, error) {
	if err := guardn("Decode", args, 2); err != nil {
		return value.Nil, err
	}
	if err := guardv("Decode", args, 0, value.KString); err != nil {
		return value.Nil, err
	}
	if err := guardv("Decode", args, 1, value.KNumber); err != nil {
		return value.Nil, err
	}
	base, ok := numberToInt(args[1].Number())
	if !ok || base < 2 || base > 36 {
		return value.Nil, fmt.Errorf("Decode: base must be an integer in 2..36")
	}
	n, err := decimal.ParseBase(args[0].String_().String(), base, decimal.NTPFromPrecision(i.Scale()))
	if err != nil {
		return value.Nil, errors.Wrap(err, "Decode")
	}
	return value.Num(n), nil
}

func biNumDigits(args []value.Value) (value.Value, error) {
	if err := guardn("NumDigits", args, 2); err != nil {
		return value.Nil, err
	}
	if err := guardv("NumDigits", args, 0, value.KNumber); err != nil {
		return value.Nil, err
	}
	if err := guardv("NumDigits", args, 1, value.KString); err != nil {
		return value.Nil, err
	}
	num := args[0].Number()
	var n int
	switch args[1].String_().String() {
	case "i":
		n = num.NumIntDigits()
	case "f":
		n = num.NumFracDigits()
	case "+":
		n = num.NumIntDigits() + num.NumFracDigits()
	default:
		return value.Nil, fmt.Errorf(`NumDigits: mode must be "i", "f" or "+"`)
	}
	return value.Num(decimal.FromInt64(int64(n))), nil
}

func biUpScale(args []value.Value) (value.Value, error) {
	if err := guardn("UpScale", args, 2); err != nil {
		return value.Nil, err
	}
	if err := guardv("UpScale", args, 0, value.KNumber); err != nil {
		return value.Nil, err
	}
	if err := guardv("UpScale", args, 1, value.KNumber); err != nil {
		return value.Nil, err
	}
	n, ok := numberToInt(args[1].Number())
	if !ok || n < 0 {
		return value.Nil, fmt.Errorf("UpScale: argument 2 must be a non-negative integer")
	}
	return value.Num(decimal.ScaleUp(args[0].Number(), n)), nil
}

func biDownScale(args []value.Value) (value.Value, error) {
	if err := guardn("DownScale", args, 2); err != nil {
		return value.Nil, err
	}
	if err := guardv("DownScale", args, 0, value.KNumber); err != nil {
		return value.Nil, err
	}
	if err := guardv("DownScale", args, 1, value.KNumber); err != nil {
		return value.Nil, err
	}
	n, ok := numberToInt(args[1].Number())
	if !ok || n < 0 {
		return value.Nil, fmt.Errorf("DownScale: argument 2 must be a non-negative integer")
	}
	return value.Num(decimal.ScaleDown(args[0].Number(), n)), nil
}

func biWref(args []value.Value) (value.Value, error) {
	if err := guardn("Wref", args, 1); err != nil {
		return value.Nil, err
	}
	w, err := value.NewWeakref(args[0])
	if err != nil {
		return value.Nil, err
	}
	return value.WeakrefV(w), nil
}

func biWvalue(args []value.Value) (value.Value, error) {
	if err := guardn("Wvalue", args, 1); err != nil {
		return value.Nil, err
	}
	if err := guardv("Wvalue", args, 0, value.KWeakref); err != nil {
		return value.Nil, err
	}
	return args[0].Weakref().Deref(), nil
}

// biLoadString compiles and runs src against the same Instance, reentrantly:
// its top-level `:=`s land as ordinary globals, visible to whatever called
// LoadString. The origin is tagged with a load-session id so a CALX_DEBUG
// dump of a REPL that LoadStrings the same text twice can tell the chunks
// apart.
func biLoadString(i *vm.Instance, args []value.Value) (value.Value, error) {
	if err := guardn("LoadString", args, 1); err != nil {
		return value.Nil, err
	}
	if err := guardv("LoadString", args, 0, value.KString); err != nil {
		return value.Nil, err
	}
	origin := fmt.Sprintf("<loadstring:%s>", uuid.NewString())
	chunk, err := compiler.Compile(origin, args[0].String_().String(), i)
	if err != nil {
		return value.Nil, err
	}
	return i.Run(chunk)
}

func biRequire(i *vm.Instance, args []value.Value) (value.Value, error) {
	if err := guardn("Require", args, 1); err != nil {
		return value.Nil, err
	}
	if err := guardv("Require", args, 0, value.KString); err != nil {
		return value.Nil, err
	}
	return i.CallRequire(args[0].String_().String())
}

// moduleNamePattern is Require's strict module-name whitelist: a bare
// identifier, never a path, so a required module can never escape baseDir.
var moduleNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FileLoader returns the vm.Require hook that loads baseDir/name.calx,
// compiling and running it against the same Instance so its top-level
// definitions become visible globals. Pass the result to vm.Require when
// constructing the Instance.
func FileLoader(baseDir string) func(i *vm.Instance, name string) (value.Value, error) {
	return func(i *vm.Instance, name string) (value.Value, error) {
		if !moduleNamePattern.MatchString(name) {
			return value.Nil, fmt.Errorf("Require: invalid module name %q", name)
		}
		path := filepath.Join(baseDir, name+".calx")
		src, err := os.ReadFile(path)
		if err != nil {
			return value.Nil, errors.Wrapf(err, "Require %q", name)
		}
		origin := fmt.Sprintf("%s#%s", path, uuid.NewString()[:8])
		chunk, err := compiler.Compile(origin, string(src), i)
		if err != nil {
			return value.Nil, err
		}
		return i.Run(chunk)
	}
}

// Package vm executes a compiled *bytecode.Chunk: a single value stack
// shared by every call frame, a parallel frame stack, and a global-variable
// table the compiler interns identifiers into via the Globals interface.
package vm

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/shdown/calx/bytecode"
	"github.com/shdown/calx/value"
)

const (
	initialStackSize = 256
	initialFrames    = 64
)

// Option configures an Instance at construction time.
type Option func(*Instance) error

// StackSize sets the initial value-stack capacity.
func StackSize(size int) Option {
	return func(i *Instance) error { i.stack = make([]value.Value, size); return nil }
}

// Output sets the writer PRINT writes to (default os.Stdout).
func Output(w io.Writer) Option {
	return func(i *Instance) error { i.out = w; return nil }
}

// Require installs the host hook backing the `Require` builtin: loading and
// running another source unit by name, returning the value its Run returns.
// cmd/calx wires this to host.FileLoader, a CALX_PATH-aware loader.
func Require(fn func(i *Instance, name string) (value.Value, error)) Option {
	return func(i *Instance) error { i.require = fn; return nil }
}

// frame is one call's activation record: the chunk and shape it is
// executing, its instruction pointer, and where its locals begin in the
// shared value stack.
type frame struct {
	chunk      *bytecode.Chunk
	shapeIdx   int
	ip         int
	localsBase int
}

// Instance is one VM execution context: value stack, frame stack and global
// table. It is not safe for concurrent use.
type Instance struct {
	stack []value.Value
	sp    int

	frames []frame

	globalNames []string
	globalIndex map[string]int
	globals     []value.Value

	out      io.Writer
	require  func(i *Instance, name string) (value.Value, error)
	insCount int64

	scale int // current decimal truncation scale, set by the `Scale` builtin
}

// New creates an Instance ready to Run chunks compiled against its Globals.
func New(opts ...Option) (*Instance, error) {
	i := &Instance{
		globalIndex: make(map[string]int),
		scale:       40,
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	if i.stack == nil {
		i.stack = make([]value.Value, initialStackSize)
	}
	if i.frames == nil {
		i.frames = make([]frame, 0, initialFrames)
	}
	if i.out == nil {
		i.out = os.Stdout
	}
	return i, nil
}

// Intern implements compiler.Globals: it assigns (or returns) a stable slot
// index for a global name, on first reference — definition and reference
// share one namespace and the slot simply starts out nil until a STORE_GLOBAL
// runs.
func (i *Instance) Intern(name string) int {
	if idx, ok := i.globalIndex[name]; ok {
		return idx
	}
	idx := len(i.globalNames)
	i.globalNames = append(i.globalNames, name)
	i.globalIndex[name] = idx
	i.globals = append(i.globals, value.Nil)
	return idx
}

// SetGlobal installs a value (typically a host.NativeFunc) under name,
// interning it first if necessary. Used to seed builtins before Run.
func (i *Instance) SetGlobal(name string, v value.Value) {
	idx := i.Intern(name)
	i.globals[idx] = v
}

// InstructionCount returns the number of instructions executed so far across
// every Run call on this Instance.
func (i *Instance) InstructionCount() int64 { return i.insCount }

// Output returns the writer PRINT and the RawWrite/Input builtins write to.
func (i *Instance) Output() io.Writer { return i.out }

// CallRequire invokes the loader installed via the Require option, or
// reports it as unavailable if none was configured.
func (i *Instance) CallRequire(name string) (value.Value, error) {
	if i.require == nil {
		return value.Nil, errors.New("Require is not available in this instance")
	}
	return i.require(i, name)
}

// Scale returns the current decimal truncation scale (fractional digit
// count division results are held to).
func (i *Instance) Scale() int { return i.scale }

// SetScale updates the current decimal truncation scale.
func (i *Instance) SetScale(n int) { i.scale = n }

func (i *Instance) ensureStack(n int) {
	for i.sp+n > len(i.stack) {
		grown := make([]value.Value, len(i.stack)*2)
		copy(grown, i.stack)
		i.stack = grown
	}
}

func (i *Instance) push(v value.Value) {
	i.ensureStack(1)
	i.stack[i.sp] = v
	i.sp++
}

func (i *Instance) pop() value.Value {
	i.sp--
	v := i.stack[i.sp]
	i.stack[i.sp] = value.Nil
	return v
}

func (i *Instance) top() value.Value { return i.stack[i.sp-1] }

func (i *Instance) curFrame() *frame { return &i.frames[len(i.frames)-1] }

package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shdown/calx/compiler"
	"github.com/shdown/calx/host"
	"github.com/shdown/calx/vm"
)

// run compiles and executes src against a fresh Instance with every host
// builtin installed, returning everything PRINT wrote.
func run(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	i, err := vm.New(vm.Output(&out))
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	host.Install(i, strings.NewReader(""))
	chunk, err := compiler.Compile("<test>", src, i)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	if _, err := i.Run(chunk); err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return out.String()
}

func TestScenarioArithmeticPrint(t *testing.T) {
	if got, want := run(t, "print 1 + 2;"), "3\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioScaleTruncation(t *testing.T) {
	got := run(t, "Scale(40); print 1/3;")
	want := "." + strings.Repeat("3", 40) + "\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioRecursiveFibonacci(t *testing.T) {
	src := `
fun f(n){
	if (n < 2) { return n; }
	return f(n-1) + f(n-2);
}
print f(10);
`
	if got, want := run(t, src), "55\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioDictOrderAndConcatCoercion(t *testing.T) {
	src := `
d := {"a": 1};
d["b"] = 2;
for (k := NextKey(d, nil); k != nil; k = NextKey(d, k)) {
	print k ~ "=" ~ d[k];
}
`
	if got, want := run(t, src), "a=1\nb=2\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioWeakrefNilsOnDrop(t *testing.T) {
	src := `
x := [1,2,3];
w := Wref(x);
print Wvalue(w) != nil;
x = nil;
print Wvalue(w) == nil;
`
	if got, want := run(t, src), "true\ntrue\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioDivisionByZeroTraceback(t *testing.T) {
	var out bytes.Buffer
	i, err := vm.New(vm.Output(&out))
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	host.Install(i, strings.NewReader(""))
	chunk, err := compiler.Compile("<test>", "print 1/0;", i)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = i.Run(chunk)
	re, ok := err.(*vm.RuntimeError)
	if !ok {
		t.Fatalf("Run returned %v (%T), want *vm.RuntimeError", err, err)
	}
	if !strings.Contains(re.Message, "division by zero") {
		t.Errorf("Message = %q, want it to mention division by zero", re.Message)
	}
	if len(re.Trace) == 0 {
		t.Error("Trace is empty, want at least one frame")
	} else if re.Trace[0].Line != 1 {
		t.Errorf("Trace[0].Line = %d, want 1", re.Trace[0].Line)
	}
}

func TestScenarioConcatNumberCoercion(t *testing.T) {
	if got, want := run(t, `print "n=" ~ 5;`), "n=5\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

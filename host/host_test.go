package host_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shdown/calx/compiler"
	"github.com/shdown/calx/host"
	"github.com/shdown/calx/vm"
)

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

func TestKind(t *testing.T) {
	data := []struct{ src, want string }{
		{`print Kind(nil);`, "nil\n"},
		{`print Kind(true);`, "flag\n"},
		{`print Kind(1);`, "number\n"},
		{`print Kind("x");`, "string\n"},
		{`print Kind([1]);`, "list\n"},
		{`print Kind({"a":1});`, "dict\n"},
	}
	for _, d := range data {
		if got := run(t, d.src); got != d.want {
			t.Errorf("%s = %q, want %q", d.src, got, d.want)
		}
	}
}

func TestPopRemovesLastElement(t *testing.T) {
	src := `
x := [1,2,3];
print Pop(x);
print x;
`
	if got, want := run(t, src), "3\n[1, 2]\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRemoveKey(t *testing.T) {
	src := `
d := {"a": 1, "b": 2};
RemoveKey(d, "a");
print NextKey(d, nil);
`
	if got, want := run(t, src), "true\nb\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := `
s := Encode(255, 16);
print s;
print Decode(s, 16) == 255;
`
	if got, want := run(t, src), "ff\ntrue\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRoundingFamily(t *testing.T) {
	data := []struct{ src, want string }{
		{`print trunc(1.7);`, "1\n"},
		{`print floor(-1.2);`, "-2\n"},
		{`print ceil(1.2);`, "2\n"},
		{`print round(1.5);`, "2\n"},
		{`print frac(1.25);`, ".25\n"},
	}
	for _, d := range data {
		if got := run(t, d.src); got != d.want {
			t.Errorf("%s = %q, want %q", d.src, got, d.want)
		}
	}
}

func TestScaleAffectsDivisionPrecision(t *testing.T) {
	src := `
Scale(3);
print 1/8;
`
	if got, want := run(t, src), ".125\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadStringDefinesGlobals(t *testing.T) {
	src := `
LoadString("x = 41 + 1;");
print x;
`
	if got, want := run(t, src), "42\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

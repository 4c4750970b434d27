package decimal_test

import (
	"testing"

	"github.com/shdown/calx/decimal"
)

func mustParse(t *testing.T, s string) *decimal.Number {
	t.Helper()
	n, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return n
}

func TestParseString(t *testing.T) {
	data := []struct{ in, want string }{
		{"0", "0"},
		{"-0", "0"},
		{"1", "1"},
		{"-1", "-1"},
		{"1.5", "1.5"},
		{"-1.5", "-1.5"},
		{"0.1", ".1"},
		{".5", ".5"},
		{"5.", "5"},
		{"1'000'000", "1000000"},
		{"1'234.567'89", "1234.56789"},
		{"000123", "123"},
		{"123.000", "123"},
		{"0.000000001", ".000000001"},
		{"999999999999999999", "999999999999999999"},
		{"1000000000", "1000000000"},
		{"1000000000.000000001", "1000000000.000000001"},
	}
	for _, d := range data {
		n := mustParse(t, d.in)
		if got := n.String(); got != d.want {
			t.Errorf("Parse(%q).String() = %q, want %q", d.in, got, d.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{"", ".", "-", "1.2.3", "1'", "'1", "1''2", "1.2'", "a", "1a", "1.a"}
	for _, s := range bad {
		if _, err := decimal.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error, got none", s)
		}
	}
}

func TestAddSub(t *testing.T) {
	data := []struct{ a, b, sum string }{
		{"1", "2", "3"},
		{"1.5", "2.5", "4"},
		{"-1", "1", "0"},
		{"1", "-1", "0"},
		{"0.1", "0.2", ".3"},
		{"-0.1", "-0.2", "-.3"},
		{"1.23", "-1.23", "0"},
		{"1000000000", "1", "1000000001"},
		{"0.000000001", "0.000000001", ".000000002"},
		{"5", "-3", "2"},
		{"3", "-5", "-2"},
	}
	for _, d := range data {
		a, b := mustParse(t, d.a), mustParse(t, d.b)
		if got := decimal.Add(a, b).String(); got != d.sum {
			t.Errorf("Add(%q, %q) = %q, want %q", d.a, d.b, got, d.sum)
		}
		// a+b-b == a
		back := decimal.Sub(decimal.Add(a, b), b)
		if got := back.String(); got != mustParse(t, d.a).String() {
			t.Errorf("Add(%q,%q)-%q = %q, want %q", d.a, d.b, d.b, got, d.a)
		}
	}
}

func TestMul(t *testing.T) {
	data := []struct{ a, b, want string }{
		{"2", "3", "6"},
		{"-2", "3", "-6"},
		{"-2", "-3", "6"},
		{"0.5", "0.5", ".25"},
		{"1.5", "2", "3"},
		{"0", "12345", "0"},
		{"0.000000001", "0.000000001", ".000000000000000001"},
		{"1000000000", "1000000000", "1000000000000000000"},
	}
	for _, d := range data {
		a, b := mustParse(t, d.a), mustParse(t, d.b)
		if got := decimal.Mul(a, b).String(); got != d.want {
			t.Errorf("Mul(%q, %q) = %q, want %q", d.a, d.b, got, d.want)
		}
	}
}

func TestDiv(t *testing.T) {
	ntp := decimal.NTPFromPrecision(6)
	data := []struct{ a, b, want string }{
		{"6", "3", "2"},
		{"1", "3", ".333333"},
		{"-1", "3", "-.333333"},
		{"1", "-3", "-.333333"},
		{"10", "4", "2.5"},
		{"0", "5", "0"},
	}
	for _, d := range data {
		a, b := mustParse(t, d.a), mustParse(t, d.b)
		got, err := decimal.Div(a, b, ntp)
		if err != nil {
			t.Fatalf("Div(%q, %q): %v", d.a, d.b, err)
		}
		if s := got.String(); s != d.want {
			t.Errorf("Div(%q, %q) = %q, want %q", d.a, d.b, s, d.want)
		}
	}

	if _, err := decimal.Div(mustParse(t, "1"), mustParse(t, "0"), ntp); err != decimal.ErrDivByZero {
		t.Errorf("Div by zero: got %v, want ErrDivByZero", err)
	}
}

func TestDivSubmod(t *testing.T) {
	ntp := decimal.NTPFromPrecision(2)
	got, err := decimal.Div(mustParse(t, "1"), mustParse(t, "3"), ntp)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != ".33" {
		t.Errorf("Div with 2-digit precision = %q, want %q", got.String(), ".33")
	}
}

func TestIDivIMod(t *testing.T) {
	data := []struct {
		a, b     string
		wantDiv  string
		wantMod  string
	}{
		{"7", "2", "3", "1"},
		{"-7", "2", "-3", "-1"},
		{"7", "-2", "-3", "1"},
		{"-7", "-2", "3", "-1"},
		{"7.9", "2.1", "3", "1"},
	}
	for _, d := range data {
		a, b := mustParse(t, d.a), mustParse(t, d.b)
		q, err := decimal.IDiv(a, b)
		if err != nil {
			t.Fatalf("IDiv(%q,%q): %v", d.a, d.b, err)
		}
		if got := q.String(); got != d.wantDiv {
			t.Errorf("IDiv(%q,%q) = %q, want %q", d.a, d.b, got, d.wantDiv)
		}
		r, err := decimal.IMod(a, b)
		if err != nil {
			t.Fatalf("IMod(%q,%q): %v", d.a, d.b, err)
		}
		if got := r.String(); got != d.wantMod {
			t.Errorf("IMod(%q,%q) = %q, want %q", d.a, d.b, got, d.wantMod)
		}
	}

	if _, err := decimal.IDiv(mustParse(t, "1"), mustParse(t, "0")); err != decimal.ErrDivByZero {
		t.Errorf("IDiv by zero: got %v", err)
	}
}

func TestPow(t *testing.T) {
	data := []struct{ b, e, want string }{
		{"2", "10", "1024"},
		{"-2", "3", "-8"},
		{"-2", "2", "4"},
		{"0", "5", "0"},
		{"5", "0", "1"},
		{"1", "999999999", "1"},
		{"-1", "3", "-1"},
		{"-1", "4", "1"},
		{"1.5", "2", "2.25"},
	}
	for _, d := range data {
		b, e := mustParse(t, d.b), mustParse(t, d.e)
		got, err := decimal.Pow(b, e)
		if err != nil {
			t.Fatalf("Pow(%q,%q): %v", d.b, d.e, err)
		}
		if s := got.String(); s != d.want {
			t.Errorf("Pow(%q,%q) = %q, want %q", d.b, d.e, s, d.want)
		}
	}

	if _, err := decimal.Pow(mustParse(t, "2"), mustParse(t, "-1")); err != decimal.ErrNegativeExponent {
		t.Errorf("Pow negative exponent: got %v", err)
	}
	if _, err := decimal.Pow(mustParse(t, "2"), mustParse(t, "1.5")); err != decimal.ErrFractionalExponent {
		t.Errorf("Pow fractional exponent: got %v", err)
	}
}

func TestCompare(t *testing.T) {
	data := []struct {
		a, b string
		want decimal.CmpMask
	}{
		{"1", "2", decimal.Less},
		{"2", "1", decimal.Greater},
		{"1", "1", decimal.Equal},
		{"1.0", "1", decimal.Equal},
		{"-1", "1", decimal.Less},
		{"0", "-0", decimal.Equal},
		{"-0.5", "0.5", decimal.Less},
		{"1.23", "1.230", decimal.Equal},
	}
	for _, d := range data {
		a, b := mustParse(t, d.a), mustParse(t, d.b)
		if got := decimal.Compare(a, b); got != d.want {
			t.Errorf("Compare(%q, %q) = %v, want %v", d.a, d.b, got, d.want)
		}
	}
}

func TestTruncFloorCeilRound(t *testing.T) {
	data := []struct {
		in                            string
		trunc, floor, ceil, round     string
	}{
		{"1.5", "1", "1", "2", "2"},
		{"-1.5", "-1", "-2", "-1", "-2"},
		{"1.4", "1", "1", "2", "1"},
		{"-1.4", "-1", "-2", "-1", "-1"},
		{"2", "2", "2", "2", "2"},
		{"0.5", "0", "0", "1", "1"},
		{"-0.5", "0", "-1", "0", "-1"},
	}
	for _, d := range data {
		n := mustParse(t, d.in)
		if got := decimal.Trunc(n).String(); got != d.trunc {
			t.Errorf("Trunc(%q) = %q, want %q", d.in, got, d.trunc)
		}
		if got := decimal.Floor(n).String(); got != d.floor {
			t.Errorf("Floor(%q) = %q, want %q", d.in, got, d.floor)
		}
		if got := decimal.Ceil(n).String(); got != d.ceil {
			t.Errorf("Ceil(%q) = %q, want %q", d.in, got, d.ceil)
		}
		if got := decimal.Round(n).String(); got != d.round {
			t.Errorf("Round(%q) = %q, want %q", d.in, got, d.round)
		}
	}
}

func TestFrac(t *testing.T) {
	data := []struct{ in, want string }{
		{"1.5", ".5"},
		{"-1.5", "-.5"},
		{"2", "0"},
		{"0.001", ".001"},
	}
	for _, d := range data {
		n := mustParse(t, d.in)
		if got := decimal.Frac(n).String(); got != d.want {
			t.Errorf("Frac(%q) = %q, want %q", d.in, got, d.want)
		}
	}
}

func TestScaleUpDown(t *testing.T) {
	data := []struct {
		in   string
		n    int
		up   string
		down string
	}{
		{"1.23", 2, "123", ".0123"},
		{"56.34", 1, "563.4", "5.634"},
		{"1", 9, "1000000000", ".000000001"},
		{"1", 18, "1000000000000000000", ".000000000000000001"},
		{"-5", 2, "-500", "-.05"},
	}
	for _, d := range data {
		n := mustParse(t, d.in)
		if got := decimal.ScaleUp(n, d.n).String(); got != d.up {
			t.Errorf("ScaleUp(%q, %d) = %q, want %q", d.in, d.n, got, d.up)
		}
		n2 := mustParse(t, d.in)
		if got := decimal.ScaleDown(n2, d.n).String(); got != d.down {
			t.Errorf("ScaleDown(%q, %d) = %q, want %q", d.in, d.n, got, d.down)
		}
	}
}

func TestBitwise(t *testing.T) {
	a, b := decimal.FromInt64(0xF0), decimal.FromInt64(0x0F)
	if got := decimal.BitAnd(a, b).String(); got != "0" {
		t.Errorf("BitAnd = %s, want 0", got)
	}
	if got := decimal.BitOr(a, b).String(); got != "255" {
		t.Errorf("BitOr = %s, want 255", got)
	}
	if got := decimal.BitXor(a, b).String(); got != "255" {
		t.Errorf("BitXor = %s, want 255", got)
	}
	if got := decimal.BitShl(decimal.FromInt64(1), decimal.FromInt64(4)).String(); got != "16" {
		t.Errorf("BitShl = %s, want 16", got)
	}
	if got := decimal.BitLshr(decimal.FromInt64(16), decimal.FromInt64(4)).String(); got != "1" {
		t.Errorf("BitLshr = %s, want 1", got)
	}
}

func TestNumDigits(t *testing.T) {
	data := []struct {
		in           string
		intd, fracd  int
	}{
		{"0", 0, 0},
		{"5", 1, 0},
		{"123", 3, 0},
		{"1000", 4, 0},
		{"0.5", 0, 1},
		{"0.100", 0, 1},
		{"123.456", 3, 3},
		{"0.000000001", 0, 9},
	}
	for _, d := range data {
		n := mustParse(t, d.in)
		if got := n.NumIntDigits(); got != d.intd {
			t.Errorf("NumIntDigits(%q) = %d, want %d", d.in, got, d.intd)
		}
		if got := n.NumFracDigits(); got != d.fracd {
			t.Errorf("NumFracDigits(%q) = %d, want %d", d.in, got, d.fracd)
		}
	}
}

func TestFormatBase(t *testing.T) {
	data := []struct {
		in        string
		base      int
		nfrac     int
		want      string
	}{
		{"255", 16, 0, "ff"},
		{"10", 2, 0, "1010"},
		{"0.5", 2, 4, "0.1"},
		{"-255", 16, 0, "-ff"},
	}
	for _, d := range data {
		n := mustParse(t, d.in)
		if got := n.Format(d.base, d.nfrac); got != d.want {
			t.Errorf("Format(%q, base=%d) = %q, want %q", d.in, d.base, got, d.want)
		}
	}
}

func TestParseBaseRoundTrip(t *testing.T) {
	ntp := decimal.NTPFromPrecision(9)
	data := []struct {
		s    string
		base int
	}{
		{"ff", 16},
		{"1010", 2},
		{"-ff", 16},
		{"zz", 36},
	}
	for _, d := range data {
		n, err := decimal.ParseBase(d.s, d.base, ntp)
		if err != nil {
			t.Fatalf("ParseBase(%q, %d): %v", d.s, d.base, err)
		}
		if got := n.Format(d.base, 0); got != d.s {
			t.Errorf("ParseBase(%q, %d).Format round trip = %q, want %q", d.s, d.base, got, d.s)
		}
	}
}

func TestNTPPrecisionRoundTrip(t *testing.T) {
	for prec := 0; prec <= 12; prec++ {
		ntp := decimal.NTPFromPrecision(prec)
		if got := ntp.Precision(); got != prec {
			t.Errorf("NTPFromPrecision(%d).Precision() = %d, want %d", prec, got, prec)
		}
	}
}

func TestTruncate(t *testing.T) {
	n := mustParse(t, "1.23456789")
	ntp := decimal.NTPFromPrecision(4)
	if got := n.Truncate(ntp).String(); got != "1.2345" {
		t.Errorf("Truncate = %q, want %q", got, "1.2345")
	}
}

func TestCloneIndependence(t *testing.T) {
	a := mustParse(t, "1.5")
	b := a.Clone()
	c := decimal.Add(b, decimal.FromInt64(1))
	if a.String() != "1.5" {
		t.Errorf("Clone was not independent: a = %s", a.String())
	}
	if c.String() != "2.5" {
		t.Errorf("Add after clone = %s, want 2.5", c.String())
	}
}

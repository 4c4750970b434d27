package decimal

import (
	"errors"
	"strings"
)

// ErrSyntax is returned by Parse/ParseBase for malformed input.
var ErrSyntax = errors.New("invalid number syntax")

// digitValue returns the value of c as a digit in the given base (2..36),
// or ok=false if c is not a valid digit in that base.
func digitValue(c byte, base int) (int, bool) {
	var v int
	switch {
	case c >= '0' && c <= '9':
		v = int(c - '0')
	case c >= 'a' && c <= 'z':
		v = int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		v = int(c-'A') + 10
	default:
		return 0, false
	}
	if v >= base {
		return 0, false
	}
	return v, true
}

// stripSeparators removes apostrophe digit-group separators, rejecting one
// that isn't flanked by digits in the given base on both sides.
func stripSeparators(s string, base int) (string, error) {
	if !strings.Contains(s, "'") {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if i == 0 || i == len(s)-1 {
			return "", ErrSyntax
		}
		if _, ok := digitValue(s[i-1], base); !ok {
			return "", ErrSyntax
		}
		if _, ok := digitValue(s[i+1], base); !ok {
			return "", ErrSyntax
		}
	}
	return b.String(), nil
}

// splitSign splits a leading '-' off s.
func splitSign(s string) (neg bool, rest string) {
	if strings.HasPrefix(s, "-") {
		return true, s[1:]
	}
	return false, s
}

// splitNumberLiteral validates the grammar
// (D+ | D* '.' D+ | D+ '.' D*) and returns the integer and fractional digit
// runs (without separators, without the sign).
func splitNumberLiteral(s string, base int) (intDigits, fracDigits string, err error) {
	dot := strings.IndexByte(s, '.')
	var ip, fp string
	if dot < 0 {
		ip = s
	} else {
		ip, fp = s[:dot], s[dot+1:]
	}
	if ip == "" && fp == "" {
		return "", "", ErrSyntax
	}
	for i := 0; i < len(ip); i++ {
		if _, ok := digitValue(ip[i], base); !ok {
			return "", "", ErrSyntax
		}
	}
	for i := 0; i < len(fp); i++ {
		if _, ok := digitValue(fp[i], base); !ok {
			return "", "", ErrSyntax
		}
	}
	return ip, fp, nil
}

// Parse parses s as a base-10 literal with exact, limb-accurate precision
// (no truncation to the current process scale — see the design notes on the
// base-10/base-N parsing asymmetry). This is what the compiler uses for
// numeric literals.
func Parse(s string) (*Number, error) {
	return parseDecimalSigned(s)
}

func parseDecimalSigned(s string) (*Number, error) {
	neg, rest := splitSign(s)
	rest, err := stripSeparators(rest, 10)
	if err != nil {
		return nil, err
	}
	ip, fp, err := splitNumberLiteral(rest, 10)
	if err != nil {
		return nil, err
	}
	n := &Number{neg: neg}
	n.limbs = append(n.limbs, packDigitsFrac(fp)...)
	n.scale = len(n.limbs)
	n.limbs = append(n.limbs, packDigitsInt(ip)...)
	return n.canonicalize(), nil
}

// packDigitsInt packs an integer-part digit run into limbs, least
// significant limb first, grouping from the right (ones place) in runs of
// limbDigits.
func packDigitsInt(s string) []limb {
	if s == "" {
		return nil
	}
	n := (len(s) + limbDigits - 1) / limbDigits
	out := make([]limb, n)
	end := len(s)
	for i := 0; i < n; i++ {
		start := end - limbDigits
		if start < 0 {
			start = 0
		}
		out[i] = packChunk(s[start:end])
		end = start
	}
	return out
}

// packDigitsFrac packs a fractional-part digit run into limbs ordered
// least-significant-limb-first (limb 0 deepest), grouping from the decimal
// point outward (left to right) and padding the final (deepest) group with
// trailing zeros on the right if it's short.
func packDigitsFrac(s string) []limb {
	if s == "" {
		return nil
	}
	n := (len(s) + limbDigits - 1) / limbDigits
	out := make([]limb, n)
	start := 0
	for i := n - 1; i >= 0; i-- {
		end := start + limbDigits
		chunk := ""
		if end <= len(s) {
			chunk = s[start:end]
		} else {
			chunk = s[start:] + strings.Repeat("0", end-len(s))
		}
		out[i] = packChunk(chunk)
		start = end
	}
	return out
}

func packChunk(s string) limb {
	var v uint32
	for i := 0; i < len(s); i++ {
		v = v*10 + uint32(s[i]-'0')
	}
	return v
}

// ParseBase parses s in the given base (2..36) using Horner evaluation
// (acc = acc*base + digit), then applies ntp's scale/submod truncation to
// the result — unlike Parse, ParseBase is not limb-accurate: it is bounded
// by the current precision, matching Decode()'s ambient-scale semantics.
func ParseBase(s string, base int, ntp NTP) (*Number, error) {
	if base == 10 {
		n, err := parseDecimalSigned(s)
		if err != nil {
			return nil, err
		}
		return n.Truncate(ntp), nil
	}
	neg, rest := splitSign(s)
	rest, err := stripSeparators(rest, base)
	if err != nil {
		return nil, err
	}
	ip, fp, err := splitNumberLiteral(rest, base)
	if err != nil {
		return nil, err
	}
	acc := Zero()
	baseN := FromInt64(int64(base))
	for i := 0; i < len(ip); i++ {
		d, _ := digitValue(ip[i], base)
		acc = Add(Mul(acc, baseN), FromInt64(int64(d)))
	}
	for i := 0; i < len(fp); i++ {
		d, _ := digitValue(fp[i], base)
		acc = Add(Mul(acc, baseN), FromInt64(int64(d)))
	}
	if len(fp) > 0 {
		denom, perr := Pow(baseN, FromInt64(int64(len(fp))))
		if perr != nil {
			return nil, perr
		}
		acc, err = Div(acc, denom, ntp)
		if err != nil {
			return nil, err
		}
	} else {
		acc = acc.Truncate(ntp)
	}
	acc.neg = neg && !acc.IsZero()
	return acc, nil
}

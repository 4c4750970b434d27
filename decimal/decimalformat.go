package decimal

import (
	"strings"
)

const digitAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// FormatDecimal renders n using the native base-10 mode: limb digits are
// packed directly, leading integer zeros and trailing fractional zeros are
// stripped. A magnitude with no integer digits prints with no leading "0"
// before the point (".333..."), not "0.333..."; the special case of an
// absolute-zero value collapses to plain "0".
func (n *Number) FormatDecimal() string {
	il := trimHigh(n.intLimbs())
	var intStr string
	if len(il) > 0 {
		var b strings.Builder
		for i := len(il) - 1; i >= 0; i-- {
			if i == len(il)-1 {
				b.WriteString(itoa(uint32(il[i])))
			} else {
				b.WriteString(zeroPad(uint32(il[i])))
			}
		}
		intStr = b.String()
	}

	fl := n.fracLimbs()
	var fb strings.Builder
	for i := len(fl) - 1; i >= 0; i-- {
		fb.WriteString(zeroPad(uint32(fl[i])))
	}
	fracStr := strings.TrimRight(fb.String(), "0")

	sign := ""
	if n.IsNeg() {
		sign = "-"
	}
	switch {
	case fracStr == "" && intStr == "":
		return "0"
	case fracStr == "":
		return sign + intStr
	case intStr == "":
		return sign + "." + fracStr
	default:
		return sign + intStr + "." + fracStr
	}
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func zeroPad(v uint32) string {
	s := itoa(v)
	if len(s) >= limbDigits {
		return s
	}
	return strings.Repeat("0", limbDigits-len(s)) + s
}

// divSmallBig divides a plain (scale-0) limb vector by a small divisor,
// returning the quotient and remainder.
func divSmallBig(v []limb, d uint64) (q []limb, r uint64) {
	out := make([]limb, len(v))
	var carry uint64
	for i := len(v) - 1; i >= 0; i-- {
		cur := carry*limbBase + uint64(v[i])
		out[i] = limb(cur / d)
		carry = cur % d
	}
	return trimHigh(out), carry
}

// Format renders n in the given base (2..36) with exactly nfrac fractional
// digits (after which trailing zeros are trimmed): integer digits come from
// repeated divmod of the integer part, fractional digits from repeatedly
// multiplying the fractional part by base and peeling the integer carry.
func (n *Number) Format(base, nfrac int) string {
	il := append([]limb(nil), trimHigh(n.intLimbs())...)
	var intDigits []byte
	if limbsIsZero(il) {
		intDigits = []byte{'0'}
	} else {
		for !limbsIsZero(il) {
			var r uint64
			il, r = divSmallBig(il, uint64(base))
			intDigits = append(intDigits, digitAlphabet[r])
		}
		for i, j := 0, len(intDigits)-1; i < j; i, j = i+1, j-1 {
			intDigits[i], intDigits[j] = intDigits[j], intDigits[i]
		}
	}

	scale := n.scale
	f := make([]limb, scale)
	copy(f, n.fracLimbs())
	fracDigits := make([]byte, nfrac)
	for i := 0; i < nfrac; i++ {
		fb := mulMagnitudeByLimb(f, limb(base))
		var d limb
		if len(fb) > scale {
			d = fb[scale]
		}
		nf := make([]limb, scale)
		copy(nf, fb)
		f = nf
		fracDigits[i] = digitAlphabet[d]
	}
	fracStr := strings.TrimRight(string(fracDigits), "0")

	sign := ""
	if n.IsNeg() {
		sign = "-"
	}
	if fracStr == "" {
		return sign + string(intDigits)
	}
	return sign + string(intDigits) + "." + fracStr
}

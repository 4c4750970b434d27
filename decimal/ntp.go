package decimal

// NTP is a NumberTruncateParams: the scale-control policy used by every
// division and by explicit rounding to a given decimal precision. It means
// "keep Scale fractional limbs, then zero out value % Submod in the lowest
// fractional limb". Submod == 1 means byte-exact (no sub-limb rounding).
type NTP struct {
	Scale  int
	Submod uint32
}

// wordFromPow10 returns 10^p for 0 <= p <= limbDigits.
func wordFromPow10(p int) uint32 {
	r := uint32(1)
	for ; p > 0; p-- {
		r *= 10
	}
	return r
}

// ctz10 returns the number of trailing decimal zeros of x (x must be a power
// of ten produced by wordFromPow10, i.e. in [1, limbBase]).
func ctz10(x uint32) int {
	n := 0
	for x > 1 && x%10 == 0 {
		x /= 10
		n++
	}
	return n
}

// NTPFromPrecision maps a decimal precision (digit count kept after the
// point) to a NumberTruncateParams.
func NTPFromPrecision(prec int) NTP {
	q, r := prec/limbDigits, prec%limbDigits
	if r == 0 {
		return NTP{Scale: q, Submod: 1}
	}
	return NTP{Scale: q + 1, Submod: wordFromPow10(limbDigits - r)}
}

// Precision recovers the decimal digit count this NTP keeps.
func (n NTP) Precision() int {
	return n.Scale*limbDigits - ctz10(n.Submod)
}

// Truncate applies n's scale/submod policy to a, keeping at most n.Scale
// fractional limbs and zeroing out a.limbs[0] % n.Submod in the lowest kept
// fractional limb. It never rounds — only truncates toward zero.
func (a *Number) Truncate(n NTP) *Number {
	c := a.clone()
	if c.scale > n.Scale {
		drop := c.scale - n.Scale
		c.limbs = append([]limb(nil), c.limbs[drop:]...)
		c.scale = n.Scale
	}
	if n.Submod > 1 && c.scale > 0 && len(c.limbs) > 0 {
		c.limbs[0] -= c.limbs[0] % n.Submod
	}
	return c.canonicalizeInt()
}

package decimal

import "errors"

// ErrDivByZero is returned by Div, IDiv and IMod when the divisor is zero.
var ErrDivByZero = errors.New("division by zero")

// ErrFractionalExponent is returned by Pow when the exponent has a nonzero
// fractional part.
var ErrFractionalExponent = errors.New("fractional exponent")

// ErrNegativeExponent is returned by Pow when the exponent is negative.
var ErrNegativeExponent = errors.New("negative exponent")

// ErrExponentOverflow is returned by Pow when the exponent is too large to
// compute for a base whose absolute value is not 0 or 1. The original
// implementation aborts the process in this case (see the design notes);
// this port promotes it to a recoverable error instead.
var ErrExponentOverflow = errors.New("exponent too large")

// maxPowExponent bounds square-and-multiply for bases outside {-1,0,1}. At
// this magnitude the result would already be thousands of decimal digits.
const maxPowExponent = 1 << 20

func mulMagnitudeByLimb(v []limb, m limb) []limb {
	if m == 0 || limbsIsZero(v) {
		return nil
	}
	out := make([]limb, len(v)+1)
	var carry uint64
	for i, x := range v {
		s := uint64(x)*uint64(m) + carry
		out[i] = limb(s % limbBase)
		carry = s / limbBase
	}
	out[len(v)] = limb(carry)
	return trimHigh(out)
}

func mulMagnitude(a, b []limb) []limb {
	if limbsIsZero(a) || limbsIsZero(b) {
		return nil
	}
	out := make([]limb, len(a)+len(b))
	for i, av := range a {
		if av == 0 {
			continue
		}
		var carry uint64
		for j, bv := range b {
			s := uint64(av)*uint64(bv) + uint64(out[i+j]) + carry
			out[i+j] = limb(s % limbBase)
			carry = s / limbBase
		}
		k := i + len(b)
		for carry > 0 {
			s := uint64(out[k]) + carry
			out[k] = limb(s % limbBase)
			carry = s / limbBase
			k++
		}
	}
	return trimHigh(out)
}

func limbsIsZero(v []limb) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// trimHigh removes trailing (highest-index) zero limbs.
func trimHigh(v []limb) []limb {
	n := len(v)
	for n > 0 && v[n-1] == 0 {
		n--
	}
	return v[:n]
}

// shiftLimbsLeft multiplies a plain (scale-0) limb vector by limbBase^k.
func shiftLimbsLeft(v []limb, k int) []limb {
	if k == 0 {
		return append([]limb(nil), v...)
	}
	out := make([]limb, k, k+len(v))
	return append(out, v...)
}

// bigDiv performs schoolbook long division of two plain (scale-0, base
// limbBase) magnitude limb vectors, returning the truncated quotient. den
// must be nonzero.
func bigDiv(num, den []limb) []limb {
	den = trimHigh(den)
	quotient := make([]limb, len(num))
	var rem []limb
	for i := len(num) - 1; i >= 0; i-- {
		rem = shiftLimbsLeft(rem, 1)
		if len(rem) == 0 {
			rem = []limb{num[i]}
		} else {
			rem[0] = num[i]
		}
		rem = trimHigh(rem)
		// binary search the largest digit d such that d*den <= rem.
		lo, hi := uint32(0), uint32(limbBase-1)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if cmpMagnitude(mulMagnitudeByLimb(den, mid), rem) <= 0 {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		quotient[i] = lo
		rem = trimHigh(subMagnitude(padTo(rem, len(den)+1), padTo(mulMagnitudeByLimb(den, lo), len(den)+1)))
	}
	return trimHigh(quotient)
}

func padTo(v []limb, n int) []limb {
	if len(v) >= n {
		return v
	}
	out := make([]limb, n)
	copy(out, v)
	return out
}

// Div returns a/b, truncated toward zero to max(a.Scale(), ntp.Scale)
// fractional limbs with ntp.Submod applied to the lowest kept limb.
func Div(a, b *Number, ntp NTP) (*Number, error) {
	if b.IsZero() {
		return nil, ErrDivByZero
	}
	target := a.scale
	if ntp.Scale > target {
		target = ntp.Scale
	}
	shift := b.scale + target - a.scale
	numRaw := shiftLimbsLeft(a.limbs, shift)
	denRaw := b.limbs
	q := &Number{neg: a.IsNeg() != b.IsNeg(), scale: target, limbs: bigDiv(numRaw, denRaw)}
	q.padToScale()
	q.normalizeInt()
	if ntp.Submod > 1 && q.scale > 0 {
		q.limbs[0] -= q.limbs[0] % ntp.Submod
	}
	if q.IsZero() {
		q.neg = false
	}
	return q, nil
}

// IDiv returns the truncating integer quotient of the integer parts of a
// and b. Fails if the integer part of b is zero.
func IDiv(a, b *Number) (*Number, error) {
	bi := b.intLimbs()
	if limbsIsZero(bi) {
		return nil, ErrDivByZero
	}
	ai := a.intLimbs()
	q := &Number{neg: a.IsNeg() != b.IsNeg(), limbs: bigDiv(ai, bi)}
	q.normalizeInt()
	if q.IsZero() {
		q.neg = false
	}
	return q, nil
}

// IMod returns the remainder of the integer division of the integer parts
// of a and b, with the sign of a (C-style truncating modulo).
func IMod(a, b *Number) (*Number, error) {
	bi := b.intLimbs()
	if limbsIsZero(bi) {
		return nil, ErrDivByZero
	}
	ai := a.intLimbs()
	q := bigDiv(ai, bi)
	prod := mulMagnitude(q, bi)
	rem := subMagnitude(padTo(ai, maxInt(len(ai), len(prod))+1), padTo(prod, maxInt(len(ai), len(prod))+1))
	r := &Number{neg: a.IsNeg(), limbs: trimHigh(rem)}
	if r.IsZero() {
		r.neg = false
	}
	return r, nil
}

// Pow returns b^e. e must be a nonnegative integer (no fractional part).
func Pow(b, e *Number) (*Number, error) {
	if e.IsNeg() {
		return nil, ErrNegativeExponent
	}
	if !limbsIsZero(e.fracLimbs()) {
		return nil, ErrFractionalExponent
	}
	if b.IsZero() {
		return Zero(), nil
	}
	isUnit := cmpMagnitude(b.intLimbs(), []limb{1}) == 0 && limbsIsZero(b.fracLimbs())
	if isUnit {
		if !oddExponent(e) {
			return FromInt64(1), nil
		}
		return b.clone(), nil
	}
	ei := e.intLimbs()
	expVal, ok := limbsToUint64(ei)
	if !ok || expVal > maxPowExponent {
		return nil, ErrExponentOverflow
	}
	result := FromInt64(1)
	base := b.clone()
	n := expVal
	for n > 0 {
		if n&1 == 1 {
			result = Mul(result, base)
		}
		n >>= 1
		if n > 0 {
			base = Mul(base, base)
		}
	}
	return result, nil
}

func oddExponent(e *Number) bool {
	ei := e.intLimbs()
	if len(ei) == 0 {
		return false
	}
	return ei[0]%2 == 1
}

func limbsToUint64(v []limb) (uint64, bool) {
	var acc uint64
	for i := len(v) - 1; i >= 0; i-- {
		if acc > (1<<64-1)/limbBase {
			return 0, false
		}
		acc = acc*limbBase + uint64(v[i])
	}
	return acc, true
}

package decimal

// Trunc discards the fractional part.
func Trunc(a *Number) *Number {
	n := &Number{neg: a.IsNeg(), limbs: append([]limb(nil), a.intLimbs()...)}
	return n.canonicalizeInt()
}

// Frac returns only the fractional part (same sign as a, integer part 0).
func Frac(a *Number) *Number {
	n := &Number{neg: a.IsNeg(), scale: a.scale, limbs: append([]limb(nil), a.fracLimbs()...)}
	n.padToScale()
	return n.canonicalizeInt()
}

// Floor rounds toward negative infinity.
func Floor(a *Number) *Number {
	t := Trunc(a)
	if a.IsNeg() && !limbsIsZero(a.fracLimbs()) {
		return Sub(t, FromInt64(1))
	}
	return t
}

// Ceil rounds toward positive infinity.
func Ceil(a *Number) *Number {
	t := Trunc(a)
	if !a.IsNeg() && !limbsIsZero(a.fracLimbs()) {
		return Add(t, FromInt64(1))
	}
	return t
}

// Round rounds half away from zero: if the first (most significant)
// fractional limb is >= limbBase/2, the truncated magnitude is incremented
// by one before truncation.
func Round(a *Number) *Number {
	frac := a.fracLimbs()
	if len(frac) == 0 {
		return Trunc(a)
	}
	msf := frac[len(frac)-1]
	t := Trunc(a)
	if msf >= limbBase/2 {
		if a.IsNeg() {
			return Sub(t, FromInt64(1))
		}
		return Add(t, FromInt64(1))
	}
	return t
}

// narrow32 narrows a to an unsigned 32-bit integer value (truncating the
// integer part), as required by the bitwise operators.
func narrow32(a *Number) uint32 {
	il := a.intLimbs()
	v, _ := limbsToUint64(il)
	return uint32(v)
}

func bitResult(v uint32) *Number {
	return FromInt64(int64(v))
}

// BitAnd, BitOr, BitXor, BitShl, BitLshr narrow both operands (or the shift
// amount) to unsigned 32-bit integers before combining them.
func BitAnd(a, b *Number) *Number { return bitResult(narrow32(a) & narrow32(b)) }
func BitOr(a, b *Number) *Number  { return bitResult(narrow32(a) | narrow32(b)) }
func BitXor(a, b *Number) *Number { return bitResult(narrow32(a) ^ narrow32(b)) }
func BitShl(a, b *Number) *Number {
	return bitResult(narrow32(a) << (narrow32(b) & 31))
}
func BitLshr(a, b *Number) *Number {
	return bitResult(narrow32(a) >> (narrow32(b) & 31))
}

// ScaleDown divides a by 10^n: the limb boundary shifts by n/limbDigits whole
// limbs, and any remaining sub-limb shift is realized as a multiply by
// 10^(limbDigits-rem) against one extra fractional limb of headroom — the
// carries produced by that multiply are exactly the regrouped digits that
// move across the limb boundary.
func ScaleDown(a *Number, n int) *Number {
	if n <= 0 {
		return a.clone()
	}
	limbShift := n / limbDigits
	rem := n % limbDigits
	limbs := append([]limb(nil), a.limbs...)
	scale := a.scale + limbShift
	if rem > 0 {
		limbs = mulMagnitudeByLimb(limbs, wordFromPow10(limbDigits-rem))
		scale++
	}
	c := &Number{neg: a.IsNeg(), scale: scale, limbs: limbs}
	c.padToScale()
	return c.canonicalizeInt()
}

// ScaleUp multiplies a by 10^n, symmetric to ScaleDown.
func ScaleUp(a *Number, n int) *Number {
	if n <= 0 {
		return a.clone()
	}
	limbShift := n / limbDigits
	rem := n % limbDigits
	limbs := append([]limb(nil), a.limbs...)
	if rem > 0 {
		limbs = mulMagnitudeByLimb(limbs, wordFromPow10(rem))
	}
	scale := a.scale - limbShift
	if scale < 0 {
		// the boundary moves past the stored fractional limbs; those
		// positions become low-order zero digits of the integer part.
		limbs = append(make([]limb, -scale), limbs...)
		scale = 0
	}
	c := &Number{neg: a.IsNeg(), scale: scale, limbs: limbs}
	c.padToScale()
	return c.canonicalizeInt()
}

// NumIntDigits returns the number of base-10 digits in the integer part
// (0 for a value with no integer part, i.e. an integer part of zero).
func (n *Number) NumIntDigits() int {
	il := n.intLimbs()
	il = trimHigh(il)
	if len(il) == 0 {
		return 0
	}
	top := il[len(il)-1]
	d := (len(il) - 1) * limbDigits
	for top > 0 {
		d++
		top /= 10
	}
	return d
}

// NumFracDigits returns the number of significant base-10 digits in the
// fractional part (trailing zeros within the lowest limb are not counted).
func (n *Number) NumFracDigits() int {
	fl := n.fracLimbs()
	last := -1
	for i, l := range fl {
		if l != 0 {
			last = i
			break
		}
	}
	if last == -1 {
		return 0
	}
	d := (n.scale - 1 - last) * limbDigits
	v := fl[last]
	// count significant digits of v from the low end (trailing zeros of v
	// correspond to the least-significant missing digits of this limb).
	width := limbDigits
	for v != 0 && v%10 == 0 {
		v /= 10
		width--
	}
	return d + width
}

package lirc

import (
	"math/bits"
	"time"
)

// genMask returns a mask of the n lowest bits.
func genMask(n int) Code {
	if n <= 0 {
		return 0
	}
	if n >= MaxBits {
		return ^Code(0)
	}
	return Code(1)<<n - 1
}

// shl shifts left, yielding 0 when every bit is shifted out.
func shl(c Code, n int) Code {
	if n >= MaxBits {
		return 0
	}
	return c << n
}

func shr(c Code, n int) Code {
	if n >= MaxBits {
		return 0
	}
	return c >> n
}

// reverseBits reverses the order of the n lowest bits of c.
func reverseBits(c Code, n int) Code {
	if n <= 0 {
		return 0
	}
	return Code(bits.Reverse64(uint64(c)) >> (MaxBits - n))
}

// genCode concatenates pre, code and post using the remote's widths.
func (r *Remote) genCode(pre, code, post Code) Code {
	all := pre & genMask(r.PreDataBits)
	all = shl(all, r.Bits)
	if r.isRaw() {
		all |= code
	} else {
		all |= code & genMask(r.Bits)
	}
	all = shl(all, r.PostDataBits)
	all |= post & genMask(r.PostDataBits)
	return all
}

// decodeContext holds the fields extracted from one decode attempt.
type decodeContext struct {
	pre  Code
	code Code
	post Code

	repeatFlag      bool
	gap             time.Duration
	minRemainingGap time.Duration
	maxRemainingGap time.Duration
}

// mapCode reshapes the driver's fields onto the remote's widths. Drivers may
// group the bits differently as long as the total matches.
func (r *Remote) mapCode(ctx *decodeContext, f *Frame) bool {
	if f.PreBits+f.CodeBits+f.PostBits != r.BitCount() {
		return false
	}

	all := f.Pre & genMask(f.PreBits)
	all = shl(all, f.CodeBits)
	all |= f.Code & genMask(f.CodeBits)
	all = shl(all, f.PostBits)
	all |= f.Post & genMask(f.PostBits)

	ctx.post = all & genMask(r.PostDataBits)
	all = shr(all, r.PostDataBits)
	ctx.code = all & genMask(r.Bits)
	all = shr(all, r.Bits)
	ctx.pre = all & genMask(r.PreDataBits)
	return true
}

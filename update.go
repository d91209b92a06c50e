package lirc

import "time"

// repeatWindow is how recent the previous signal of a remote must be for a
// new one to count as a repeat.
const repeatWindow = time.Second

// setCode updates the repeat and toggle state of r after found matched and
// returns the code to report for it.
func (d *Decoder) setCode(r *Remote, found *Button, toggleBitMaskState Code, ctx *decodeContext) Code {
	now := d.now()

	if r.releaseDetected {
		r.releaseDetected = false
		if ctx.repeatFlag {
			d.logger.Debug(
				"repeat indicated although release was detected before",
				"remote", r.Name)
		}
		ctx.repeatFlag = false
	}

	repeat := r == d.lastDecoded &&
		(found == r.lastCode || found.HasSequence() && found.midSequence()) &&
		ctx.repeatFlag &&
		now.Sub(r.lastSend) < repeatWindow &&
		(!r.hasToggleBitMask() || toggleBitMaskState == r.toggleBitMaskState)

	if repeat {
		if r.hasToggleMask() {
			// two toggle mask steps make up one repeat
			r.toggleMaskState++
			if r.toggleMaskState == 4 {
				r.reps++
				r.toggleMaskState = 2
			}
		} else if !found.midSequence() {
			r.reps++
		}
	} else {
		if found.HasSequence() && !found.midSequence() {
			r.reps = 1
		} else {
			r.reps = 0
		}
		if r.hasToggleMask() {
			r.toggleMaskState = 1
			r.toggleCode = found
		}
		if r.hasToggleBitMask() {
			r.toggleBitMaskState = toggleBitMaskState
		}
	}

	d.lastRemote = r
	d.lastDecoded = r
	if !found.midSequence() {
		r.lastCode = found
	}
	r.lastSend = now
	r.minRemainingGap = ctx.minRemainingGap
	r.maxRemainingGap = ctx.maxRemainingGap
	r.gapKnown = true

	return r.reportCode(found)
}

// reportCode assembles the code reported for b.
func (r *Remote) reportCode(b *Button) Code {
	var code Code
	if r.hasPre() {
		code = shl(r.PreData, r.Bits)
	}
	code |= b.Code
	if r.hasPost() {
		code = shl(code, r.PostDataBits) | r.PostData
	}
	if r.Flags&CompatReverse != 0 {
		// Reversing pre, code and post separately would be correct, but
		// existing configurations depend on the whole code being reversed.
		code = reverseBits(code, r.BitCount())
	}
	return code
}

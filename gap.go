package lirc

import "time"

// freshPressGap is the elapsed time after which a signal is never a repeat.
const freshPressGap = 2 * time.Second

// mapGap classifies the time since the previous signal as a repeat or a new
// press and estimates the gap remaining after this signal.
func (r *Remote) mapGap(ctx *decodeContext, start, last time.Time, signalLength time.Duration) {
	elapsed := start.Sub(last)
	if elapsed >= freshPressGap {
		// Only the measured gap is zeroed; the remaining gap estimates
		// below still come from the configuration.
		ctx.repeatFlag = false
		ctx.gap = 0
	} else {
		ctx.gap = elapsed
		// A gap shorter than the standard one (within tolerance) means the
		// button is being held.
		_, maxRemaining := r.RemainingGap()
		ctx.repeatFlag = r.ExpectAtMost(elapsed, maxRemaining)
	}

	if r.isConst() {
		// signal plus gap is constant, so a longer code leaves less gap.
		minGap, maxGap := r.MinGap(), r.MaxGap()
		ctx.minRemainingGap = 0
		ctx.maxRemainingGap = 0
		if minGap > signalLength {
			ctx.minRemainingGap = minGap - signalLength
		}
		if maxGap > signalLength {
			ctx.maxRemainingGap = maxGap - signalLength
		}
	} else {
		// the gap follows the signal unchanged, e.g. serial remotes.
		ctx.minRemainingGap = r.MinGap()
		ctx.maxRemainingGap = r.MaxGap()
	}
}

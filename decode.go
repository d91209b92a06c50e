package lirc

import (
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrNoMatch is returned when no remote recognized the signal.
	ErrNoMatch = errors.New("lirc: decoding failed for all remotes")
	// ErrIncomplete is returned when the signal matched part of a button
	// that needs more signals to complete.
	ErrIncomplete = errors.New("lirc: button not complete")
	// ErrSuppressed is returned for repeats hidden by suppress_repeat.
	ErrSuppressed = errors.New("lirc: repeat suppressed")
	// ErrPacketOverflow is returned when the formatted packet is too long.
	ErrPacketOverflow = errors.New("lirc: packet buffer overflow")
)

// Decoder turns driver signals into button presses. It owns the state shared
// across remotes: which remote decoded last and whether dynamic codes are in
// use. A Decoder is not safe for concurrent use.
type Decoder struct {
	// DynamicCodes makes unknown codes decode as a synthesized button.
	DynamicCodes bool
	// Release is notified of every reported press. It may be nil.
	Release PressRecorder
	// Now returns the current time. It defaults to time.Now.
	Now func() time.Time

	driver  Driver
	remotes []*Remote
	logger  *slog.Logger

	lastDecoded *Remote
	lastRemote  *Remote
}

// NewDecoder creates a decoder trying remotes in order.
func NewDecoder(driver Driver, remotes []*Remote, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		driver:  driver,
		remotes: remotes,
		logger:  logger,
	}
}

func (d *Decoder) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Remotes returns the remotes in decoding order.
func (d *Decoder) Remotes() []*Remote { return d.remotes }

// SetRemotes replaces the remote table. The previous table is no longer
// touched by the decoder, but references held elsewhere stay valid.
func (d *Decoder) SetRemotes(remotes []*Remote) {
	d.remotes = remotes
	d.lastDecoded = nil
	d.lastRemote = nil
}

// LastRemote returns the remote that decoded the previous signal, or nil if
// the previous signal was not recognized.
func (d *Decoder) LastRemote() *Remote { return d.lastRemote }

// Decode tries every remote in order on sig and returns the resulting press.
// ErrNoMatch, ErrIncomplete and ErrSuppressed mean there is nothing to
// report yet; the next signal may complete or repeat the press.
func (d *Decoder) Decode(sig Signal) (ButtonPress, error) {
	if f, ok := d.driver.Decode(internalRemote, sig); ok && f.Code == EOFCode {
		d.logger.Debug("decode all: returning EOF")
		return eofPress, nil
	}

	for _, r := range d.remotes {
		d.logger.Debug("trying remote", "remote", r.Name)

		if b, tbms, ctx, ok := d.match(r, sig); ok {
			return d.finish(r, b, tbms, ctx)
		}

		d.logger.Debug("remote failed", "remote", r.Name)
		r.toggleMaskState = 0
	}

	d.lastRemote = nil
	d.logger.Debug("decoding failed for all remotes")
	return ButtonPress{}, ErrNoMatch
}

func (d *Decoder) match(r *Remote, sig Signal) (*Button, Code, *decodeContext, bool) {
	frame, ok := d.driver.Decode(r, sig)
	if !ok {
		return nil, 0, nil, false
	}

	ctx := &decodeContext{}
	if !r.mapCode(ctx, &frame) {
		return nil, 0, nil, false
	}
	r.mapGap(ctx, frame.Start, frame.Last, frame.SignalLength)

	d.logger.Debug("mapped code",
		"remote", r.Name,
		"pre", uint64(ctx.pre),
		"code", uint64(ctx.code),
		"post", uint64(ctx.post),
		"repeat", ctx.repeatFlag,
		"gap", ctx.gap,
		"min_remaining_gap", ctx.minRemainingGap,
		"max_remaining_gap", ctx.maxRemainingGap)

	b, tbms := r.getCode(ctx.pre, ctx.code, ctx.post, ctx.repeatFlag, d.DynamicCodes)
	if b == nil {
		return nil, 0, nil, false
	}
	return b, tbms, ctx, true
}

func (d *Decoder) finish(r *Remote, b *Button, tbms Code, ctx *decodeContext) (ButtonPress, error) {
	d.logger.Debug("found button", "remote", r.Name, "button", b.Name)

	code := d.setCode(r, b, tbms, ctx)
	if r.hasToggleMask() && r.toggleMaskState%2 == 1 || b.midSequence() {
		return ButtonPress{}, ErrIncomplete
	}

	d.resetSequences()
	last := r.lastCode
	if r.isXMP() {
		last.current = 1 % last.chainLen()
	}

	reps := r.reps
	if b.HasSequence() {
		reps--
	}
	if reps > 0 {
		if reps <= r.SuppressRepeat {
			return ButtonPress{}, ErrSuppressed
		}
		reps -= r.SuppressRepeat
	}
	reps = max(reps, 0)

	if d.Release != nil {
		d.Release.RegisterPress(r, last, code, reps)
	}

	press := ButtonPress{
		Code:              uint64(code),
		RepeatCount:       uint(reps),
		ButtonName:        last.Name,
		RemoteControlName: r.Name,
	}
	if len(press.Packet()) > PacketSize {
		d.logger.Error(
			"message buffer overflow",
			"remote", r.Name,
			"button", last.Name)
		return ButtonPress{}, ErrPacketOverflow
	}
	return press, nil
}

// resetSequences rewinds the receive cursor of every button; a complete
// press ends every partial match.
func (d *Decoder) resetSequences() {
	for _, r := range d.remotes {
		for _, b := range r.Codes {
			b.current = 0
		}
	}
}

package lirc

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultRepeatMax is the default limit on the number of repeats.
const DefaultRepeatMax = 600

var (
	ErrBusy              = errors.New("busy: repeating")
	ErrAlreadyRepeating  = errors.New("already repeating")
	ErrNotRepeating      = errors.New("not repeating")
	ErrTransmitFailed    = errors.New("transmission failed")
	ErrRepeatInterrupted = errors.New("repeating interrupted")
	ErrRemoteMismatch    = errors.New("specified remote does not match")
	ErrButtonMismatch    = errors.New("specified code does not match")
	ErrTooManyRepeats    = errors.New("too many repeats")
)

type sendState uint8

const (
	sendIdle sendState = iota
	sendSending
	sendRepeating
)

func (s sendState) String() string {
	switch s {
	case sendIdle:
		return "idle"
	case sendSending:
		return "sending"
	case sendRepeating:
		return "repeating"
	default:
		return fmt.Sprintf("sendState(%d)", s)
	}
}

// Repeater sends buttons through a driver and repeats them on a timer. It
// does not own a timer: after each call the owner arms one for Delay if
// Repeating reports true, and calls Fire when it expires.
type Repeater struct {
	// RepeatMax caps the repeat count of any send.
	RepeatMax int
	// Now and Sleep default to time.Now and time.Sleep.
	Now   func() time.Time
	Sleep func(time.Duration)

	driver Driver
	logger *slog.Logger

	state  sendState
	remote *Remote
	button *Button
}

// NewRepeater creates an idle repeater sending through driver.
func NewRepeater(driver Driver, logger *slog.Logger) *Repeater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repeater{
		RepeatMax: DefaultRepeatMax,
		driver:    driver,
		logger:    logger,
	}
}

func (r *Repeater) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Repeater) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Repeating reports whether a repeat is in progress.
func (r *Repeater) Repeating() bool { return r.state == sendRepeating }

// Current returns the remote and button being repeated.
func (r *Repeater) Current() (*Remote, *Button) { return r.remote, r.button }

// Delay returns the time until the next repetition is due.
func (r *Repeater) Delay() time.Duration {
	if r.remote == nil {
		return 0
	}
	minGap, _ := r.remote.RemainingGap()
	return minGap
}

// Start sends button once and begins repeating it if needed. reps is the
// number of repeats requested by SEND_ONCE, or negative if none was given;
// once is false for SEND_START, which repeats until stopped or RepeatMax.
// It reports whether the send is already complete.
func (r *Repeater) Start(remote *Remote, button *Button, reps int, once bool) (done bool, err error) {
	if r.state != sendIdle {
		if once {
			return false, ErrBusy
		}
		return false, ErrAlreadyRepeating
	}
	if reps > r.RepeatMax {
		return false, fmt.Errorf("%w: %d > %d", ErrTooManyRepeats, reps, r.RepeatMax)
	}

	r.state = sendSending
	if remote.hasToggleMask() {
		remote.toggleMaskState = 0
	}
	if remote.hasToggleBitMask() {
		remote.toggleBitMaskState ^= remote.ToggleBitMask
	}
	button.transmit = 0
	remote.repeatCountdown = remote.MinRepeat

	if err := r.send(remote, button); err != nil {
		r.state = sendIdle
		return false, err
	}
	remote.lastSend = r.now()
	remote.lastCode = button

	if once {
		remote.repeatCountdown = max(remote.repeatCountdown, reps)
	} else {
		remote.repeatCountdown = r.RepeatMax
	}

	if remote.repeatCountdown > 0 || button.HasSequence() {
		r.state = sendRepeating
		r.remote = remote
		r.button = button
		return false, nil
	}
	r.state = sendIdle
	return true, nil
}

// Fire performs one repetition. It reports whether repeating has finished;
// err is set if it finished because of a failure.
func (r *Repeater) Fire() (done bool, err error) {
	if r.state != sendRepeating {
		return true, ErrNotRepeating
	}

	remote, button := r.remote, r.button
	if remote.lastCode != button {
		// A different code from the same remote was received meanwhile;
		// repeating now could send the wrong code.
		r.reset()
		return true, ErrRepeatInterrupted
	}

	if !button.HasSequence() || button.transmit == button.chainLen()-1 {
		remote.repeatCountdown--
	}
	if err := r.send(remote, button); err != nil {
		r.reset()
		return true, err
	}
	// A chain is always sent to its end.
	if remote.repeatCountdown > 0 || button.transmit != 0 {
		return false, nil
	}
	r.reset()
	return true, nil
}

// Stop ends a repeat started for remoteName/buttonName. Empty names match
// the current repeat. If fewer than the remote's minimum repeats have been
// sent, repeating continues until they are.
func (r *Repeater) Stop(remoteName, buttonName string) error {
	if r.state != sendRepeating {
		return ErrNotRepeating
	}
	if remoteName != "" && !strings.EqualFold(remoteName, r.remote.Name) {
		return ErrRemoteMismatch
	}
	if buttonName != "" && !strings.EqualFold(buttonName, r.button.Name) {
		return ErrButtonMismatch
	}

	done := r.RepeatMax - r.remote.repeatCountdown
	if done < r.remote.MinRepeat {
		r.remote.repeatCountdown = r.remote.MinRepeat - done
		return nil
	}

	r.remote.toggleMaskState = 0
	r.reset()
	return nil
}

func (r *Repeater) reset() {
	r.state = sendIdle
	r.remote = nil
	r.button = nil
}

// send transmits the current step of button, pausing first if the previous
// send of the remote is too recent.
func (r *Repeater) send(remote *Remote, button *Button) error {
	if remote.lastCode != nil && !(r.remote == remote && remote.lastCode == button) {
		minGap, _ := remote.RemainingGap()
		pause := 2 * minGap
		if elapsed := r.now().Sub(remote.lastSend); elapsed < pause {
			r.sleep(pause - elapsed)
		}
	}

	code := button.chain(button.transmit)
	if err := r.driver.Transmit(remote, button, code); err != nil {
		r.logger.Error(
			"transmission failed",
			"remote", remote.Name,
			"button", button.Name,
			"err", err)
		return fmt.Errorf("%w: %w", ErrTransmitFailed, err)
	}
	if button.HasSequence() {
		button.transmit = (button.transmit + 1) % button.chainLen()
	}

	remote.lastSend = r.now()
	remote.lastCode = button
	return nil
}

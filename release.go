package lirc

import "time"

// DefaultReleaseSuffix is appended to button names in release events.
const DefaultReleaseSuffix = "_UP"

const (
	minReceiveTimeout = 100 * time.Millisecond
	releaseMargin     = 10 * time.Millisecond
)

// PressRecorder is told about every reported button press.
type PressRecorder interface {
	RegisterPress(remote *Remote, button *Button, code Code, reps int)
}

type pressRecord struct {
	remote *Remote
	button *Button
	code   Code
}

func (p pressRecord) release(suffix string) ButtonPress {
	return ButtonPress{
		Code:              uint64(p.code),
		ButtonName:        p.button.Name,
		Suffix:            suffix,
		RemoteControlName: p.remote.Name,
	}
}

// Releaser synthesizes release events: a button counts as released once no
// repeat of it arrived within the remote's longest signal plus a margin.
type Releaser struct {
	Suffix string
	Now    func() time.Time

	current    *pressRecord
	superseded *pressRecord
	deadline   time.Time
}

// NewReleaser returns a Releaser using suffix for its events.
func NewReleaser(suffix string) *Releaser {
	if suffix == "" {
		suffix = DefaultReleaseSuffix
	}
	return &Releaser{Suffix: suffix}
}

func (r *Releaser) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RegisterPress implements PressRecorder.
func (r *Releaser) RegisterPress(remote *Remote, button *Button, code Code, reps int) {
	if reps == 0 && r.current != nil {
		r.superseded = r.current
	}
	r.current = &pressRecord{remote: remote, button: button, code: code}
	r.deadline = r.now().Add(releaseGap(remote))
}

// releaseGap is how long after a press its release is assumed.
func releaseGap(r *Remote) time.Duration {
	return r.UpperLimit(r.MaxTotalSignalLength-r.MinGap()) +
		receiveTimeout(r.UpperLimit(r.MinGap())) +
		releaseMargin
}

func receiveTimeout(d time.Duration) time.Duration {
	if 2*d < minReceiveTimeout {
		return minReceiveTimeout
	}
	return 2 * d
}

// Check returns the release of a press that was superseded by a new one.
func (r *Releaser) Check() (ButtonPress, bool) {
	if r.superseded == nil {
		return ButtonPress{}, false
	}
	p := r.superseded
	r.superseded = nil
	return p.release(r.Suffix), true
}

// Deadline returns when the pending release is due.
func (r *Releaser) Deadline() (time.Time, bool) {
	if r.current == nil {
		return time.Time{}, false
	}
	return r.deadline, true
}

// Trigger returns the pending release if its deadline has passed.
func (r *Releaser) Trigger() (ButtonPress, bool) {
	if r.current == nil || r.now().Before(r.deadline) {
		return ButtonPress{}, false
	}
	p := r.current
	r.current = nil
	r.deadline = time.Time{}
	return p.release(r.Suffix), true
}

// Flush returns the pending release regardless of its deadline. It is used
// when the remote table is replaced and pending presses cannot be resolved
// against the new one.
func (r *Releaser) Flush() (ButtonPress, bool) {
	r.superseded = nil
	if r.current == nil {
		return ButtonPress{}, false
	}
	p := r.current
	r.current = nil
	r.deadline = time.Time{}
	return p.release(r.Suffix), true
}

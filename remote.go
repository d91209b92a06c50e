package lirc

import (
	"fmt"
	"strings"
	"time"
)

// Code is a decoded IR code. It is wide enough to hold the concatenation of
// the pre, code and post fields of any supported remote.
type Code uint64

// MaxBits is the largest total bit count a remote may declare.
const MaxBits = 64

// Flags describe the protocol of a remote control. The values match the
// flag bits used by lircd.conf.
type Flags uint32

const (
	RawCodes     Flags = 0x0001
	RC5          Flags = 0x0002
	ShiftEnc     Flags = RC5
	RC6          Flags = 0x0004
	RCMM         Flags = 0x0008
	SpaceEnc     Flags = 0x0010
	SpaceFirst   Flags = 0x0020
	Goldstar     Flags = 0x0040
	Grundig      Flags = 0x0080
	BO           Flags = 0x0100
	Serial       Flags = 0x0200
	XMP          Flags = 0x0400
	Reverse      Flags = 0x0800
	NoHeadRep    Flags = 0x1000
	NoFootRep    Flags = 0x2000
	ConstLength  Flags = 0x4000
	RepeatHeader Flags = 0x8000
	// CompatReverse reverses the whole reported code instead of each field.
	// It is kept for compatibility with older configurations.
	CompatReverse Flags = 0x10000
)

var flagNames = []struct {
	name string
	flag Flags
}{
	{"RAW_CODES", RawCodes},
	{"RC5", RC5},
	{"SHIFT_ENC", ShiftEnc},
	{"RC6", RC6},
	{"RCMM", RCMM},
	{"SPACE_ENC", SpaceEnc},
	{"SPACE_FIRST", SpaceFirst},
	{"GOLDSTAR", Goldstar},
	{"GRUNDIG", Grundig},
	{"BO", BO},
	{"SERIAL", Serial},
	{"XMP", XMP},
	{"REVERSE", Reverse},
	{"NO_HEAD_REP", NoHeadRep},
	{"NO_FOOT_REP", NoFootRep},
	{"CONST_LENGTH", ConstLength},
	{"REPEAT_HEADER", RepeatHeader},
	{"COMPAT_REVERSE", CompatReverse},
}

// ParseFlags parses a list of flag names as written in lircd.conf, e.g.
// "SPACE_ENC|CONST_LENGTH". Names are case-insensitive.
func ParseFlags(s string) (Flags, error) {
	var flags Flags
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ' ' }) {
		found := false
		for _, f := range flagNames {
			if strings.EqualFold(f.name, name) {
				flags |= f.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown flag %q", name)
		}
	}
	return flags, nil
}

// String implements fmt.Stringer.
func (f Flags) String() string {
	var names []string
	for _, n := range flagNames {
		if n.name == "SHIFT_ENC" {
			continue
		}
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// Button is one named button of a remote control.
type Button struct {
	Name string
	Code Code
	// Sequence holds the codes following Code for buttons that send a chain
	// of distinct codes.
	Sequence []Code

	// current indexes the chain (Code, Sequence...) at the next code the
	// receiver expects. 0 means the button is at rest.
	current int
	// transmit is the same cursor for the send side.
	transmit int
}

// HasSequence reports whether the button is made of more than one code.
func (b *Button) HasSequence() bool { return len(b.Sequence) > 0 }

// chain returns the i-th code of the button's chain.
func (b *Button) chain(i int) Code {
	if i == 0 {
		return b.Code
	}
	return b.Sequence[i-1]
}

func (b *Button) chainLen() int { return len(b.Sequence) + 1 }

// midSequence reports whether the receive cursor points inside the chain.
func (b *Button) midSequence() bool { return b.current != 0 }

// Remote is one remote control protocol definition together with the
// mutable state the decoder keeps for it.
type Remote struct {
	Name  string
	Flags Flags

	PreDataBits  int
	Bits         int
	PostDataBits int
	PreData      Code
	PostData     Code

	ToggleBitMask Code
	ToggleMask    Code
	IgnoreMask    Code
	RepeatMask    Code
	RC6Mask       Code

	// Eps is the relative tolerance in percent, Aeps the absolute one.
	Eps  int
	Aeps time.Duration

	Header  [2]time.Duration // pulse, space
	One     [2]time.Duration
	Zero    [2]time.Duration
	Trail   time.Duration
	Gap     time.Duration
	Gap2    time.Duration
	Freq    uint

	// MaxTotalSignalLength is the longest signal plus gap the remote sends.
	MaxTotalSignalLength time.Duration

	MinRepeat      int
	SuppressRepeat int

	// DynCodesName names buttons synthesized in dynamic code mode.
	DynCodesName string

	Codes []*Button

	lastCode           *Button
	lastSend           time.Time
	reps               int
	toggleMaskState    int
	toggleBitMaskState Code
	toggleCode         *Button
	minRemainingGap    time.Duration
	maxRemainingGap    time.Duration
	gapKnown           bool
	repeatCountdown    int
	releaseDetected    bool

	dyncodes [2]Button
	dyncode  int

	internal bool
}

// BitCount returns the total number of bits of pre, code and post data.
func (r *Remote) BitCount() int { return r.PreDataBits + r.Bits + r.PostDataBits }

// Has* helpers mirror the conditions under which each field is in use.
func (r *Remote) hasPre() bool           { return r.PreDataBits > 0 }
func (r *Remote) hasPost() bool          { return r.PostDataBits > 0 }
func (r *Remote) hasToggleBitMask() bool { return r.ToggleBitMask > 0 }
func (r *Remote) hasToggleMask() bool    { return r.ToggleMask > 0 }
func (r *Remote) hasIgnoreMask() bool    { return r.IgnoreMask > 0 }
func (r *Remote) hasRepeatMask() bool    { return r.RepeatMask > 0 }
func (r *Remote) isConst() bool          { return r.Flags&ConstLength != 0 }
func (r *Remote) isRaw() bool            { return r.Flags&RawCodes != 0 }
func (r *Remote) isXMP() bool            { return r.Flags&XMP != 0 }

// LastButton returns the button most recently decoded or sent, if any.
func (r *Remote) LastButton() *Button { return r.lastCode }

// Reps returns the repeat counter of the last decoded button.
func (r *Remote) Reps() int { return r.reps }

// RemainingGap returns the minimum and maximum time left until the next
// signal may start, as estimated by the last decode. Before the first decode
// these are the configured gaps.
func (r *Remote) RemainingGap() (min, max time.Duration) {
	if !r.gapKnown {
		return r.MinGap(), r.MaxGap()
	}
	return r.minRemainingGap, r.maxRemainingGap
}

// SignalRelease records that a release was detected for this remote before
// the next decode. The next decode will not be treated as a repeat. Drivers
// that see button releases in hardware call it from Decode.
func (r *Remote) SignalRelease() { r.releaseDetected = true }

// MinGap returns the shorter of the configured gaps.
func (r *Remote) MinGap() time.Duration {
	if r.Gap2 != 0 && r.Gap2 < r.Gap {
		return r.Gap2
	}
	return r.Gap
}

// MaxGap returns the longer of the configured gaps.
func (r *Remote) MaxGap() time.Duration {
	if r.Gap2 > r.Gap {
		return r.Gap2
	}
	return r.Gap
}

// UpperLimit returns the largest duration still accepted as d.
func (r *Remote) UpperLimit(d time.Duration) time.Duration {
	aepsLimit := d + r.Aeps
	epsLimit := d * time.Duration(100+r.Eps) / 100
	return max(aepsLimit, epsLimit)
}

// LowerLimit returns the smallest duration still accepted as d.
func (r *Remote) LowerLimit(d time.Duration) time.Duration {
	aepsLimit := d - r.Aeps
	epsLimit := d * time.Duration(100-r.Eps) / 100
	limit := min(aepsLimit, epsLimit)
	if limit < 0 {
		return 0
	}
	return limit
}

// ExpectAtMost reports whether d does not exceed expected, using whichever
// of the relative or absolute tolerance is looser.
func (r *Remote) ExpectAtMost(d, expected time.Duration) bool {
	return d <= expected*time.Duration(100+r.Eps)/100 || d <= expected+r.Aeps
}

// Validate checks the structural invariants of the definition.
func (r *Remote) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("remote has no name")
	}
	if r.PreDataBits < 0 || r.Bits < 0 || r.PostDataBits < 0 {
		return fmt.Errorf("remote %q: negative bit count", r.Name)
	}
	if n := r.BitCount(); n == 0 || n > MaxBits {
		return fmt.Errorf("remote %q: total bit count %d out of range", r.Name, n)
	}
	width := genMask(r.BitCount())
	for _, m := range []struct {
		name string
		mask Code
	}{
		{"toggle_bit_mask", r.ToggleBitMask},
		{"toggle_mask", r.ToggleMask},
		{"ignore_mask", r.IgnoreMask},
		{"repeat_mask", r.RepeatMask},
		{"rc6_mask", r.RC6Mask},
	} {
		if m.mask&^width != 0 {
			return fmt.Errorf("remote %q: %s %#x exceeds %d bits", r.Name, m.name, uint64(m.mask), r.BitCount())
		}
	}
	seen := make(map[string]bool, len(r.Codes))
	for _, b := range r.Codes {
		key := strings.ToLower(b.Name)
		if seen[key] {
			return fmt.Errorf("remote %q: duplicate button %q", r.Name, b.Name)
		}
		seen[key] = true
	}
	return nil
}

// FindButton returns the button with the given case-insensitive name.
func (r *Remote) FindButton(name string) *Button {
	if r.internal {
		if name == eofButton.Name {
			return &eofButton
		}
		return nil
	}
	for _, b := range r.Codes {
		if strings.EqualFold(b.Name, name) {
			return b
		}
	}
	return nil
}

// InternalRemoteName is the name of the pseudo remote used for signaling
// within lircd itself.
const InternalRemoteName = "lirc"

// EOFCode is the code reported by a driver whose input has ended.
const EOFCode Code = 0x08000000

var eofButton = Button{Name: "__EOF", Code: EOFCode}

// NewInternalRemote returns the pseudo remote that decodes the end of the
// driver's input stream.
func NewInternalRemote() *Remote {
	return &Remote{Name: InternalRemoteName, Bits: 32, internal: true}
}

// FindRemote returns the remote with the given case-insensitive name.
// The name "lirc" always resolves to the internal remote.
func FindRemote(remotes []*Remote, name string) *Remote {
	if name == InternalRemoteName {
		return internalRemote
	}
	for _, r := range remotes {
		if strings.EqualFold(r.Name, name) {
			return r
		}
	}
	return nil
}

var internalRemote = NewInternalRemote()

// FrequencyRange returns the lowest and highest carrier frequency used by
// the remotes. Remotes without a frequency are ignored after the first.
func FrequencyRange(remotes []*Remote) (minFreq, maxFreq uint) {
	if len(remotes) == 0 {
		return 0, 0
	}
	minFreq, maxFreq = remotes[0].Freq, remotes[0].Freq
	for _, r := range remotes[1:] {
		if r.Freq == 0 {
			continue
		}
		if r.Freq > maxFreq {
			maxFreq = r.Freq
		} else if r.Freq < minFreq {
			minFreq = r.Freq
		}
	}
	return minFreq, maxFreq
}

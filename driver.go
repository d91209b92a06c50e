package lirc

import (
	"errors"
	"time"
)

// Signal is one unit of raw input read by a driver.
type Signal struct {
	// Code holds the received bits for drivers that decode in hardware.
	Code Code
	Bits int
	// Start is when this signal began and Last when the previous one ended.
	Start time.Time
	Last  time.Time
	// Length is the time occupied by the signal itself.
	Length time.Duration
	// EOF is set once the driver's input has ended.
	EOF bool
}

// Frame is a Signal as seen by one particular remote: the driver's pre, code
// and post groups plus the timing needed to classify the gap.
type Frame struct {
	Pre, Code, Post             Code
	PreBits, CodeBits, PostBits int

	SignalLength time.Duration
	Start        time.Time
	Last         time.Time
}

// Driver is the hardware layer the engine decodes from and sends through.
type Driver interface {
	// Decode extracts the fields of sig for remote. It returns false if sig
	// cannot belong to remote.
	Decode(remote *Remote, sig Signal) (Frame, bool)
	// Transmit sends code, the current step of button.
	Transmit(remote *Remote, button *Button, code Code) error
}

// ErrSendUnsupported is returned by drivers that cannot transmit.
var ErrSendUnsupported = errors.New("lirc: driver does not support sending")

// DecodeCodeWord is the decode function of drivers that deliver a complete
// code word per signal. The whole word is reported as the code group and the
// signal is considered to occupy no time.
func DecodeCodeWord(remote *Remote, sig Signal) (Frame, bool) {
	if remote.internal {
		if !sig.EOF {
			return Frame{}, false
		}
		return Frame{Code: EOFCode, CodeBits: remote.Bits, Start: sig.Start, Last: sig.Last}, true
	}
	if sig.EOF {
		return Frame{}, false
	}
	return Frame{
		Code:         sig.Code,
		CodeBits:     sig.Bits,
		SignalLength: sig.Length,
		Start:        sig.Start,
		Last:         sig.Last,
	}, true
}

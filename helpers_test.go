package lirc

import (
	"errors"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeDriver decodes whole code words and records every transmitted code.
type fakeDriver struct {
	sent []Code
	fail bool
}

func (f *fakeDriver) Decode(remote *Remote, sig Signal) (Frame, bool) {
	return DecodeCodeWord(remote, sig)
}

func (f *fakeDriver) Transmit(remote *Remote, button *Button, code Code) error {
	if f.fail {
		return errors.New("device gone")
	}
	f.sent = append(f.sent, code)
	return nil
}

// receiver feeds code words to a Decoder at given offsets from epoch.
type receiver struct {
	*Decoder
	clock fakeClock
	last  time.Time
}

func newReceiver(t *testing.T, remotes ...*Remote) *receiver {
	rx := &receiver{clock: fakeClock{t: epoch}}
	rx.Decoder = NewDecoder(&fakeDriver{}, remotes, slogt.New(t))
	rx.Decoder.Now = rx.clock.Now
	return rx
}

// receive decodes code as a signal of bits bits starting at offset at.
func (rx *receiver) receive(code Code, bits int, at time.Duration) (ButtonPress, error) {
	rx.clock.t = epoch.Add(at)
	sig := Signal{
		Code:  code,
		Bits:  bits,
		Start: rx.clock.t,
		Last:  rx.last,
	}
	rx.last = rx.clock.t
	return rx.Decode(sig)
}

func tvRemote() *Remote {
	return &Remote{
		Name: "TV",
		Bits: 8,
		Gap:  100 * time.Millisecond,
		Codes: []*Button{
			{Name: "POWER", Code: 0x15},
			{Name: "VOL_UP", Code: 0x12},
		},
	}
}

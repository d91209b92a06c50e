package lirc

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/neilotoole/slogt"
)

type transmitter struct {
	*Repeater
	driver *fakeDriver
	clock  fakeClock
	slept  []time.Duration
}

func newTransmitter(t *testing.T) *transmitter {
	tx := &transmitter{driver: &fakeDriver{}, clock: fakeClock{t: epoch}}
	tx.Repeater = NewRepeater(tx.driver, slogt.New(t))
	tx.Repeater.Now = tx.clock.Now
	tx.Repeater.Sleep = func(d time.Duration) {
		tx.slept = append(tx.slept, d)
		tx.clock.Advance(d)
	}
	return tx
}

// fireAll fires until repeating stops and returns the number of repetitions.
func (tx *transmitter) fireAll(t *testing.T) int {
	for n := 1; ; n++ {
		assert.True(t, n < 10000, "repeating never stopped")
		tx.clock.Advance(tx.Delay())
		done, err := tx.Fire()
		assert.NoError(t, err)
		if done {
			return n
		}
	}
}

func TestSendOnce(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()

	done, err := tx.Start(remote, remote.Codes[0], -1, true)
	assert.NoError(t, err)
	assert.True(t, done)
	assert.False(t, tx.Repeating())
	assert.Equal(t, []Code{0x15}, tx.driver.sent)
	assert.Equal(t, remote.Codes[0], remote.LastButton())
}

func TestSendOnceRepeats(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()

	done, err := tx.Start(remote, remote.Codes[0], 2, true)
	assert.NoError(t, err)
	assert.False(t, done)
	assert.True(t, tx.Repeating())
	assert.Equal(t, 100*time.Millisecond, tx.Delay())

	assert.Equal(t, 2, tx.fireAll(t))
	assert.False(t, tx.Repeating())
	assert.Equal(t, []Code{0x15, 0x15, 0x15}, tx.driver.sent)
}

func TestSendOnceMinRepeat(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()
	remote.MinRepeat = 2

	done, err := tx.Start(remote, remote.Codes[0], 1, true)
	assert.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 2, tx.fireAll(t))
}

func TestSendTooManyRepeats(t *testing.T) {
	tx := newTransmitter(t)
	tx.RepeatMax = 5
	remote := tvRemote()

	_, err := tx.Start(remote, remote.Codes[0], 6, true)
	assert.IsError(t, err, ErrTooManyRepeats)
	assert.Zero(t, len(tx.driver.sent))
}

func TestSendBusy(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()

	_, err := tx.Start(remote, remote.Codes[0], -1, false)
	assert.NoError(t, err)
	assert.True(t, tx.Repeating())

	_, err = tx.Start(remote, remote.Codes[1], 0, true)
	assert.IsError(t, err, ErrBusy)
	_, err = tx.Start(remote, remote.Codes[1], -1, false)
	assert.IsError(t, err, ErrAlreadyRepeating)
}

func TestSendStop(t *testing.T) {
	tx := newTransmitter(t)
	tx.RepeatMax = 10
	remote := tvRemote()

	_, err := tx.Start(remote, remote.Codes[0], -1, false)
	assert.NoError(t, err)

	assert.IsError(t, tx.Stop("VCR", ""), ErrRemoteMismatch)
	assert.IsError(t, tx.Stop("TV", "VOL_UP"), ErrButtonMismatch)

	assert.NoError(t, tx.Stop("tv", "power"))
	assert.False(t, tx.Repeating())
	assert.IsError(t, tx.Stop("", ""), ErrNotRepeating)
}

func TestSendStopBeforeMinRepeat(t *testing.T) {
	tx := newTransmitter(t)
	tx.RepeatMax = 10
	remote := tvRemote()
	remote.MinRepeat = 3

	_, err := tx.Start(remote, remote.Codes[0], -1, false)
	assert.NoError(t, err)

	assert.NoError(t, tx.Stop("TV", "POWER"))
	assert.True(t, tx.Repeating(), "keeps repeating until min_repeat is reached")
	assert.Equal(t, 3, tx.fireAll(t))
	assert.Equal(t, 4, len(tx.driver.sent))
}

func TestSendStopAfterMinRepeat(t *testing.T) {
	tx := newTransmitter(t)
	tx.RepeatMax = 10
	remote := tvRemote()
	remote.MinRepeat = 3

	_, err := tx.Start(remote, remote.Codes[0], -1, false)
	assert.NoError(t, err)
	for range 3 {
		done, err := tx.Fire()
		assert.NoError(t, err)
		assert.False(t, done)
	}

	assert.NoError(t, tx.Stop("", ""))
	assert.False(t, tx.Repeating())
}

func TestSendStartStopsAtRepeatMax(t *testing.T) {
	tx := newTransmitter(t)
	tx.RepeatMax = 4
	remote := tvRemote()

	_, err := tx.Start(remote, remote.Codes[0], -1, false)
	assert.NoError(t, err)
	assert.Equal(t, 4, tx.fireAll(t))
}

func TestSendInterruptedByReceive(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()

	_, err := tx.Start(remote, remote.Codes[0], 5, true)
	assert.NoError(t, err)

	// A different button of the same remote was decoded meanwhile.
	remote.lastCode = remote.Codes[1]

	done, err := tx.Fire()
	assert.True(t, done)
	assert.IsError(t, err, ErrRepeatInterrupted)
	assert.False(t, tx.Repeating())
	assert.Equal(t, 1, len(tx.driver.sent))
}

func TestSendTransmitFailure(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()

	_, err := tx.Start(remote, remote.Codes[0], 5, true)
	assert.NoError(t, err)

	tx.driver.fail = true
	done, err := tx.Fire()
	assert.True(t, done)
	assert.IsError(t, err, ErrTransmitFailed)
	assert.False(t, tx.Repeating())

	_, err = tx.Start(remote, remote.Codes[0], 0, true)
	assert.IsError(t, err, ErrTransmitFailed)
	assert.False(t, tx.Repeating())
}

func TestSendSequence(t *testing.T) {
	tx := newTransmitter(t)
	remote := &Remote{
		Name:  "MACROS",
		Bits:  8,
		Gap:   50 * time.Millisecond,
		Codes: []*Button{{Name: "MACRO", Code: 0x01, Sequence: []Code{0x02, 0x03}}},
	}

	done, err := tx.Start(remote, remote.Codes[0], -1, true)
	assert.NoError(t, err)
	assert.False(t, done, "the rest of the chain is still pending")

	tx.fireAll(t)
	assert.Equal(t, []Code{0x01, 0x02, 0x03}, tx.driver.sent)
	assert.Equal(t, 0, remote.Codes[0].transmit)
}

func TestSendSequenceRepeats(t *testing.T) {
	tx := newTransmitter(t)
	remote := &Remote{
		Name:  "MACROS",
		Bits:  8,
		Gap:   50 * time.Millisecond,
		Codes: []*Button{{Name: "MACRO", Code: 0x01, Sequence: []Code{0x02}}},
	}

	// The countdown drops once per completed chain.
	_, err := tx.Start(remote, remote.Codes[0], 2, true)
	assert.NoError(t, err)
	tx.fireAll(t)
	assert.Equal(t, []Code{0x01, 0x02, 0x01, 0x02}, tx.driver.sent)
}

func TestSendTogglesBit(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()
	remote.ToggleBitMask = 0x80

	_, err := tx.Start(remote, remote.Codes[0], 0, true)
	assert.NoError(t, err)
	assert.Equal(t, Code(0x80), remote.toggleBitMaskState)

	tx.clock.Advance(time.Second)
	_, err = tx.Start(remote, remote.Codes[0], 0, true)
	assert.NoError(t, err)
	assert.Equal(t, Code(0), remote.toggleBitMaskState)
}

func TestSendPacing(t *testing.T) {
	tx := newTransmitter(t)
	remote := tvRemote()

	_, err := tx.Start(remote, remote.Codes[0], 0, true)
	assert.NoError(t, err)
	assert.Zero(t, len(tx.slept), "first send is not paced")

	tx.clock.Advance(30 * time.Millisecond)
	_, err = tx.Start(remote, remote.Codes[1], 0, true)
	assert.NoError(t, err)
	assert.Equal(t, []time.Duration{170 * time.Millisecond}, tx.slept)
}

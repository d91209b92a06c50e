package lirc

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestReleaseGap(t *testing.T) {
	remote := tvRemote()
	remote.MaxTotalSignalLength = 150 * time.Millisecond
	// 50ms of signal, twice the 100ms gap, and a 10ms margin
	assert.Equal(t, 260*time.Millisecond, releaseGap(remote))

	// receive timeout never drops below 100ms
	remote.Gap = 20 * time.Millisecond
	remote.MaxTotalSignalLength = 70 * time.Millisecond
	assert.Equal(t, 160*time.Millisecond, releaseGap(remote))
}

func TestReleaser(t *testing.T) {
	clock := fakeClock{t: epoch}
	remote := tvRemote()
	remote.MaxTotalSignalLength = 150 * time.Millisecond

	r := NewReleaser("")
	r.Now = clock.Now

	_, ok := r.Deadline()
	assert.False(t, ok)

	r.RegisterPress(remote, remote.Codes[0], 0x15, 0)
	deadline, ok := r.Deadline()
	assert.True(t, ok)
	assert.Equal(t, epoch.Add(260*time.Millisecond), deadline)

	_, ok = r.Trigger()
	assert.False(t, ok, "too early")

	// a repeat pushes the deadline out
	clock.Advance(100 * time.Millisecond)
	r.RegisterPress(remote, remote.Codes[0], 0x15, 1)
	_, ok = r.Check()
	assert.False(t, ok, "repeat does not supersede")

	clock.Advance(300 * time.Millisecond)
	p, ok := r.Trigger()
	assert.True(t, ok)
	assert.Equal(t, "0000000000000015 00 POWER_UP TV\n", p.Packet())

	_, ok = r.Trigger()
	assert.False(t, ok, "release is reported once")
}

func TestReleaserSupersede(t *testing.T) {
	remote := tvRemote()
	r := NewReleaser("_RELEASE")

	r.RegisterPress(remote, remote.Codes[0], 0x15, 0)
	r.RegisterPress(remote, remote.Codes[1], 0x12, 0)

	p, ok := r.Check()
	assert.True(t, ok)
	assert.Equal(t, "POWER", p.ButtonName)
	assert.Equal(t, "_RELEASE", p.Suffix)

	_, ok = r.Check()
	assert.False(t, ok)

	p, ok = r.Flush()
	assert.True(t, ok)
	assert.Equal(t, "VOL_UP", p.ButtonName)
	_, ok = r.Deadline()
	assert.False(t, ok)
}

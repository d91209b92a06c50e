//go:build linux

package lirccode

import (
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/neilotoole/slogt"
	"golang.org/x/sys/unix"

	"libdb.so/go-lircd"
)

func pipe(t *testing.T) (r, w int) {
	var p [2]int
	assert.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	return p[0], p[1]
}

func TestRead(t *testing.T) {
	r, w := pipe(t)

	drv, err := New(r, 16)
	assert.NoError(t, err)
	t.Cleanup(func() { drv.Close() })

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	drv.Now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	_, err = unix.Write(w, []byte{0x34, 0x12, 0xcd, 0xab})
	assert.NoError(t, err)
	assert.NoError(t, unix.Close(w))

	signals := make(chan lirc.Signal, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = drv.Read(ctx, slogt.New(t), signals)
	assert.NoError(t, err)
	close(signals)

	var got []lirc.Signal
	for sig := range signals {
		got = append(got, sig)
	}
	assert.Equal(t, 3, len(got))

	assert.Equal(t, lirc.Code(0x1234), got[0].Code)
	assert.Equal(t, 16, got[0].Bits)
	assert.True(t, got[0].Last.IsZero())

	assert.Equal(t, lirc.Code(0xabcd), got[1].Code)
	assert.Equal(t, got[0].Start, got[1].Last)

	assert.True(t, got[2].EOF)
}

func TestReadCanceled(t *testing.T) {
	r, w := pipe(t)
	t.Cleanup(func() { unix.Close(w) })

	drv, err := New(r, 32)
	assert.NoError(t, err)
	t.Cleanup(func() { drv.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = drv.Read(ctx, slogt.New(t), make(chan lirc.Signal))
	assert.IsError(t, err, context.DeadlineExceeded)
}

func TestTransmit(t *testing.T) {
	r, w := pipe(t)
	t.Cleanup(func() { unix.Close(r) })

	drv, err := New(w, 12)
	assert.NoError(t, err)
	t.Cleanup(func() { drv.Close() })

	remote := &lirc.Remote{Name: "TV"}
	button := &lirc.Button{Name: "POWER"}

	assert.NoError(t, drv.Transmit(remote, button, 0xabc))

	buf := make([]byte, 4)
	n, err := unix.Read(r, buf)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xbc, 0x0a}, buf[:n])

	assert.Error(t, drv.Transmit(remote, button, 0x1abc), "wider than the code length")
}

func TestWordRoundTrip(t *testing.T) {
	for _, length := range []int{8, 12, 32, 64} {
		drv := &Driver{codeLength: length}
		code := lirc.Code(0x0123456789abcdef)
		if length < lirc.MaxBits {
			code &= lirc.Code(1)<<length - 1
		}
		assert.Equal(t, code, drv.decodeWord(drv.encodeWord(code)), "%d bits", length)
	}
}

func TestNewRejectsCodeLength(t *testing.T) {
	_, err := New(-1, 0)
	assert.Error(t, err)
	_, err = New(-1, 65)
	assert.Error(t, err)
}

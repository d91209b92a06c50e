//go:build linux

// Package lirccode is a driver for devices that decode IR signals in
// hardware and deliver one fixed-width code word per button signal.
package lirccode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"libdb.so/go-lircd"
)

// pollInterval bounds how long a read waits before checking for
// cancellation.
const pollInterval = 100 * time.Millisecond

// Driver reads code words from a file descriptor. Words are codeLength bits
// wide, stored little endian in the fewest whole bytes.
type Driver struct {
	// Now returns the current time. It defaults to time.Now.
	Now func() time.Time

	fd         int
	codeLength int
	last       time.Time
}

// Open opens a lirccode device or FIFO.
func Open(path string, codeLength int) (*Driver, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		// Some devices are receive only.
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return New(fd, codeLength)
}

// New creates a driver on an open descriptor, which it takes ownership of.
func New(fd, codeLength int) (*Driver, error) {
	if codeLength <= 0 || codeLength > lirc.MaxBits {
		return nil, fmt.Errorf("invalid code length %d", codeLength)
	}
	return &Driver{fd: fd, codeLength: codeLength}, nil
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Close closes the descriptor.
func (d *Driver) Close() error {
	return unix.Close(d.fd)
}

func (d *Driver) wordSize() int { return (d.codeLength + 7) / 8 }

// Read sends one signal per code word to signals until ctx is done or the
// input ends. At the end of input an EOF signal is sent and Read returns nil.
func (d *Driver) Read(ctx context.Context, logger *slog.Logger, signals chan<- lirc.Signal) error {
	buf := make([]byte, d.wordSize())
	n := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
		ready, err := unix.Poll(fds, int(pollInterval/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if ready == 0 {
			continue
		}

		m, err := unix.Read(d.fd, buf[n:])
		switch {
		case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return fmt.Errorf("read: %w", err)
		case m == 0:
			logger.InfoContext(ctx, "end of input")
			return d.emit(ctx, signals, lirc.Signal{EOF: true, Start: d.now(), Last: d.last})
		}

		n += m
		if n < len(buf) {
			continue
		}
		n = 0

		now := d.now()
		sig := lirc.Signal{
			Code:  d.decodeWord(buf),
			Bits:  d.codeLength,
			Start: now,
			Last:  d.last,
		}
		d.last = now

		logger.DebugContext(ctx, "received code word", "code", uint64(sig.Code))
		if err := d.emit(ctx, signals, sig); err != nil {
			return err
		}
	}
}

func (d *Driver) emit(ctx context.Context, signals chan<- lirc.Signal, sig lirc.Signal) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case signals <- sig:
		return nil
	}
}

func (d *Driver) decodeWord(buf []byte) lirc.Code {
	var code lirc.Code
	for i := len(buf) - 1; i >= 0; i-- {
		code = code<<8 | lirc.Code(buf[i])
	}
	if d.codeLength < lirc.MaxBits {
		code &= lirc.Code(1)<<d.codeLength - 1
	}
	return code
}

func (d *Driver) encodeWord(code lirc.Code) []byte {
	buf := make([]byte, d.wordSize())
	for i := range buf {
		buf[i] = byte(code)
		code >>= 8
	}
	return buf
}

// Decode implements lirc.Driver.
func (d *Driver) Decode(remote *lirc.Remote, sig lirc.Signal) (lirc.Frame, bool) {
	return lirc.DecodeCodeWord(remote, sig)
}

// Transmit implements lirc.Driver by writing the code word back to the
// descriptor, for devices that accept code words for sending.
func (d *Driver) Transmit(remote *lirc.Remote, button *lirc.Button, code lirc.Code) error {
	if code>>d.codeLength != 0 && d.codeLength < lirc.MaxBits {
		return fmt.Errorf("code %#x of %s/%s exceeds %d bits", uint64(code), remote.Name, button.Name, d.codeLength)
	}
	buf := d.encodeWord(code)
	for len(buf) > 0 {
		n, err := unix.Write(d.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			if errors.Is(err, unix.EBADF) || errors.Is(err, unix.EINVAL) {
				return lirc.ErrSendUnsupported
			}
			return fmt.Errorf("write: %w", err)
		}
		buf = buf[n:]
	}
	return nil
}

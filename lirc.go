// Package lirc decodes infrared remote control signals into button events
// and sends buttons back out, the way the Linux Infrared Remote Control
// (LIRC) daemon does.
package lirc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrUnknownRemote is returned for commands naming an unknown remote.
	ErrUnknownRemote = errors.New("unknown remote")
	// ErrUnknownButton is returned for commands naming an unknown button.
	ErrUnknownButton = errors.New("unknown command")
)

// DefaultVersion is reported by the VERSION command unless overridden.
const DefaultVersion = "0.10.2"

// Options configure a Daemon.
type Options struct {
	// RepeatMax limits the number of repeats of a send. Defaults to
	// DefaultRepeatMax.
	RepeatMax int
	// DynamicCodes decodes unknown codes as synthesized buttons.
	DynamicCodes bool
	// Release enables release events, named with ReleaseSuffix.
	Release       bool
	ReleaseSuffix string
	// Version is reported by the VERSION command.
	Version string
}

// Daemon decodes signals from a driver and serves send commands. Decoding
// and repeating run on the single goroutine calling Run, so they never
// observe each other half way.
type Daemon struct {
	// Events is a channel that will receive ButtonPress events.
	// These events are sent for as long as [Run] is running and must be
	// drained by the caller. This channel is never closed.
	Events chan ButtonPress

	send   chan request
	reload chan []*Remote

	remotes  []*Remote
	decoder  *Decoder
	repeater *Repeater
	releaser *Releaser
	version  string

	// waiting holds the SEND_ONCE request answered when repeating stops.
	waiting *request
}

type request struct {
	cmd   Command
	reply chan CommandReply
}

// NewDaemon creates a daemon decoding and sending through driver.
// The daemon does nothing until Run is called.
func NewDaemon(driver Driver, remotes []*Remote, opts Options) *Daemon {
	d := &Daemon{
		Events:   make(chan ButtonPress),
		send:     make(chan request),
		reload:   make(chan []*Remote),
		remotes:  remotes,
		decoder:  NewDecoder(driver, remotes, nil),
		repeater: NewRepeater(driver, nil),
		version:  opts.Version,
	}
	d.decoder.DynamicCodes = opts.DynamicCodes
	if opts.RepeatMax > 0 {
		d.repeater.RepeatMax = opts.RepeatMax
	}
	if opts.Release {
		d.releaser = NewReleaser(opts.ReleaseSuffix)
		d.decoder.Release = d.releaser
	}
	if d.version == "" {
		d.version = DefaultVersion
	}
	return d
}

// SendCommand sends a command to the daemon and waits for its reply.
// SEND_ONCE is answered only after all its repeats have been sent.
func (d *Daemon) SendCommand(ctx context.Context, command Command) (CommandReply, error) {
	req := request{cmd: command, reply: make(chan CommandReply, 1)}

	select {
	case <-ctx.Done():
		return CommandReply{}, ctx.Err()
	case d.send <- req:
		// safe to continue
	}

	select {
	case <-ctx.Done():
		return CommandReply{}, ctx.Err()
	case reply := <-req.reply:
		if reply.Command != command.EncodeCommand()[0] {
			return reply, fmt.Errorf("unexpected reply command: %q", reply.Command)
		}
		if !reply.Success {
			return reply, ErrUnsuccessfulCommand
		}
		return reply, nil
	}
}

// RepeatButton tells the daemon to keep sending the given button until the
// returned callback is called.
func (d *Daemon) RepeatButton(ctx context.Context, remote, button string) (stop func() error, err error) {
	if _, err := d.SendCommand(ctx, SendStart{remote, button}); err != nil {
		return nil, err
	}

	return func() error {
		_, err := d.SendCommand(ctx, SendStop{remote, button})
		return err
	}, nil
}

// Reload replaces the remote table. A repeat in progress keeps sending with
// the remote it started with.
func (d *Daemon) Reload(ctx context.Context, remotes []*Remote) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.reload <- remotes:
		return nil
	}
}

// oneShot is a timer that can be left unarmed.
type oneShot struct {
	t  *time.Timer
	at time.Time
}

func (o *oneShot) C() <-chan time.Time {
	if o.t == nil {
		return nil
	}
	return o.t.C
}

func (o *oneShot) arm(d time.Duration) {
	o.stop()
	o.t = time.NewTimer(d)
}

func (o *oneShot) stop() {
	if o.t != nil {
		o.t.Stop()
		o.t = nil
	}
	o.at = time.Time{}
}

// fired marks the timer as expired after its channel delivered.
func (o *oneShot) fired() {
	o.t = nil
	o.at = time.Time{}
}

// Run decodes signals and serves commands until ctx is done. Signals are
// read until the channel is closed.
func (d *Daemon) Run(ctx context.Context, logger *slog.Logger, signals <-chan Signal) error {
	d.decoder.logger = logger.With("component", "decoder")
	d.repeater.logger = logger.With("component", "repeater")

	var repeatTimer, releaseTimer oneShot
	defer repeatTimer.stop()
	defer releaseTimer.stop()

	for {
		select {
		case <-ctx.Done():
			d.answerWaiting(ctx.Err())
			return ctx.Err()

		case sig, ok := <-signals:
			if !ok {
				logger.InfoContext(ctx, "driver input closed")
				signals = nil
				continue
			}
			if err := d.decode(ctx, logger, sig); err != nil {
				return err
			}

		case req := <-d.send:
			if err := d.handle(ctx, logger, req); err != nil {
				return err
			}

		case remotes := <-d.reload:
			d.remotes = remotes
			d.decoder.SetRemotes(remotes)
			logger.InfoContext(ctx, "remote table reloaded",
				"remotes", len(remotes),
				"repeating", d.repeater.Repeating())
			if d.releaser != nil {
				if p, ok := d.releaser.Flush(); ok {
					if err := d.emit(ctx, p); err != nil {
						return err
					}
				}
			}

		case <-repeatTimer.C():
			repeatTimer.fired()
			d.fire(logger)

		case <-releaseTimer.C():
			releaseTimer.fired()
			if p, ok := d.releaser.Trigger(); ok {
				if err := d.emit(ctx, p); err != nil {
					return err
				}
			}
		}

		if d.repeater.Repeating() {
			if repeatTimer.t == nil {
				repeatTimer.arm(d.repeater.Delay())
			}
		} else {
			repeatTimer.stop()
		}

		if d.releaser != nil {
			if deadline, ok := d.releaser.Deadline(); !ok {
				releaseTimer.stop()
			} else if !deadline.Equal(releaseTimer.at) {
				releaseTimer.arm(time.Until(deadline))
				releaseTimer.at = deadline
			}
		}
	}
}

func (d *Daemon) emit(ctx context.Context, p ButtonPress) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.Events <- p:
		return nil
	}
}

func (d *Daemon) decode(ctx context.Context, logger *slog.Logger, sig Signal) error {
	press, err := d.decoder.Decode(sig)
	if err != nil {
		if !errors.Is(err, ErrPacketOverflow) {
			logger.DebugContext(ctx, "no button press", "err", err)
		}
		return nil
	}

	if d.releaser != nil {
		if p, ok := d.releaser.Check(); ok {
			if err := d.emit(ctx, p); err != nil {
				return err
			}
		}
	}
	return d.emit(ctx, press)
}

func (d *Daemon) fire(logger *slog.Logger) {
	done, err := d.repeater.Fire()
	if !done {
		return
	}
	if err != nil {
		logger.Error(
			"repeating stopped",
			"err", err)
	}
	d.answerWaiting(err)
}

// answerWaiting replies to the deferred SEND_ONCE request, if any.
func (d *Daemon) answerWaiting(err error) {
	if d.waiting == nil {
		return
	}
	name := d.waiting.cmd.EncodeCommand()[0]
	if err != nil {
		d.waiting.reply <- errorReply(name, err)
	} else {
		d.waiting.reply <- successReply(name)
	}
	d.waiting = nil
}

func (d *Daemon) lookup(remoteName, buttonName string) (*Remote, *Button, error) {
	remote := FindRemote(d.remotes, remoteName)
	if remote == nil || remote.internal {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownRemote, remoteName)
	}
	button := remote.FindButton(buttonName)
	if button == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownButton, buttonName)
	}
	return remote, button, nil
}

func (d *Daemon) handle(ctx context.Context, logger *slog.Logger, req request) error {
	name := req.cmd.EncodeCommand()[0]
	reply := func(err error, data ...string) {
		if err != nil {
			req.reply <- errorReply(name, err)
		} else {
			req.reply <- successReply(name, data...)
		}
	}

	switch cmd := req.cmd.(type) {
	case SendOnce, SendStart:
		var remoteName, buttonName string
		reps, once := -1, false
		switch cmd := cmd.(type) {
		case SendOnce:
			remoteName, buttonName, once = cmd.RemoteControl, cmd.ButtonName, true
			if cmd.Repeats > 0 {
				reps = int(cmd.Repeats)
			}
		case SendStart:
			remoteName, buttonName = cmd.RemoteControl, cmd.ButtonName
		}

		remote, button, err := d.lookup(remoteName, buttonName)
		if err != nil {
			reply(err)
			return nil
		}

		done, err := d.repeater.Start(remote, button, reps, once)
		switch {
		case err != nil:
			reply(err)
		case done || !once:
			reply(nil)
		default:
			d.waiting = &req
		}

		logger.DebugContext(ctx, "send started",
			"remote", remote.Name,
			"button", button.Name,
			"repeating", d.repeater.Repeating(),
			"err", err)

	case SendStop:
		err := d.repeater.Stop(cmd.RemoteControl, cmd.ButtonName)
		if err == nil && !d.repeater.Repeating() {
			d.answerWaiting(ErrRepeatInterrupted)
		}
		reply(err)

	case List:
		if cmd.RemoteControl == "" {
			names := make([]string, len(d.remotes))
			for i, r := range d.remotes {
				names[i] = r.Name
			}
			reply(nil, names...)
			return nil
		}
		remote := FindRemote(d.remotes, cmd.RemoteControl)
		if remote == nil || remote.internal {
			reply(fmt.Errorf("%w: %q", ErrUnknownRemote, cmd.RemoteControl))
			return nil
		}
		lines := make([]string, len(remote.Codes))
		for i, b := range remote.Codes {
			lines[i] = fmt.Sprintf("%016x %s", uint64(b.Code), b.Name)
		}
		reply(nil, lines...)

	case Simulate:
		press, err := ParseButtonPress(cmd.Data)
		if err != nil {
			reply(fmt.Errorf("bad simulate data: %w", err))
			return nil
		}
		reply(nil)
		return d.emit(ctx, press)

	case Version:
		reply(nil, d.version)

	default:
		reply(fmt.Errorf("unknown directive: %q", name))
	}
	return nil
}

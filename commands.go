package lirc

import (
	"fmt"
	"strconv"
	"strings"
)

// Command describes a command that can be sent to the daemon.
type Command interface {
	// EncodeCommand encodes the command and arguments as a slice of strings.
	EncodeCommand() []string
}

// SendOnce tells the daemon to send the IR signal associated with the given
// remote control and button name, and then repeat it repeats times. repeats
// is a decimal number between 0 and the repeat limit, which defaults to 600.
// If repeats is not specified or is less than the minimum number of repeats
// for the selected remote control, the minimum value will be used.
//
// The reply is sent once all repeats are done.
type SendOnce struct {
	RemoteControl string
	ButtonName    string
	Repeats       uint // optional
}

// EncodeCommand implements the [Command] interface.
func (s SendOnce) EncodeCommand() []string {
	if s.Repeats == 0 {
		return []string{"SEND_ONCE", s.RemoteControl, s.ButtonName}
	}
	return []string{"SEND_ONCE", s.RemoteControl, s.ButtonName, strconv.Itoa(int(s.Repeats))}
}

// SendStart tells the daemon to start repeating the given button until it
// receives a [SendStop] command. However, the number of repeats is limited
// to the repeat limit. No new send commands are accepted while repeating.
type SendStart struct {
	RemoteControl string
	ButtonName    string
}

// EncodeCommand implements the [Command] interface.
func (s SendStart) EncodeCommand() []string {
	return []string{"SEND_START", s.RemoteControl, s.ButtonName}
}

// SendStop tells the daemon to abort a [SendStart] command. Repeating
// continues until the remote's min_repeat count has been sent.
type SendStop struct {
	RemoteControl string
	ButtonName    string
}

// EncodeCommand implements the [Command] interface.
func (s SendStop) EncodeCommand() []string {
	return []string{"SEND_STOP", s.RemoteControl, s.ButtonName}
}

// List returns a list of all defined remote controls, or the buttons of
// RemoteControl if it is set.
type List struct {
	RemoteControl string
}

// EncodeCommand implements the [Command] interface.
func (l List) EncodeCommand() []string {
	if l.RemoteControl == "" {
		return []string{"LIST"}
	}
	return []string{"LIST", l.RemoteControl}
}

// Simulate instructs the daemon to send this to all clients i. e., to
// simulate that this key has been decoded. Data must be formatted exactly as
// a broadcast packet, see [ButtonPress.Packet].
type Simulate struct {
	Data string
}

// EncodeCommand implements the [Command] interface.
func (s Simulate) EncodeCommand() []string {
	return append([]string{"SIMULATE"}, strings.Fields(s.Data)...)
}

// Version tells the daemon to send a version packet response.
type Version struct{}

// EncodeCommand implements the [Command] interface.
func (v Version) EncodeCommand() []string {
	return []string{"VERSION"}
}

// ParseCommand parses a command line as written by [Command.EncodeCommand].
// Command names are case-insensitive.
func ParseCommand(line string) (Command, error) {
	w := strings.Fields(line)
	if len(w) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	args := w[1:]
	nargs := func(min, max int) error {
		if len(args) < min || len(args) > max {
			return fmt.Errorf("%s: bad argument count %d", w[0], len(args))
		}
		return nil
	}

	switch strings.ToUpper(w[0]) {
	case "SEND_ONCE":
		if err := nargs(2, 3); err != nil {
			return nil, err
		}
		cmd := SendOnce{RemoteControl: args[0], ButtonName: args[1]}
		if len(args) == 3 {
			n, err := strconv.ParseUint(args[2], 10, 0)
			if err != nil {
				return nil, fmt.Errorf("bad send packet (reps/eol): %w", err)
			}
			cmd.Repeats = uint(n)
		}
		return cmd, nil
	case "SEND_START":
		if err := nargs(2, 2); err != nil {
			return nil, err
		}
		return SendStart{RemoteControl: args[0], ButtonName: args[1]}, nil
	case "SEND_STOP":
		if err := nargs(0, 2); err != nil {
			return nil, err
		}
		var cmd SendStop
		if len(args) > 0 {
			cmd.RemoteControl = args[0]
		}
		if len(args) > 1 {
			cmd.ButtonName = args[1]
		}
		return cmd, nil
	case "LIST":
		if err := nargs(0, 1); err != nil {
			return nil, err
		}
		var cmd List
		if len(args) == 1 {
			cmd.RemoteControl = args[0]
		}
		return cmd, nil
	case "SIMULATE":
		if err := nargs(4, 4); err != nil {
			return nil, err
		}
		return Simulate{Data: strings.Join(args, " ")}, nil
	case "VERSION":
		if err := nargs(0, 0); err != nil {
			return nil, err
		}
		return Version{}, nil
	default:
		return nil, fmt.Errorf("unknown directive: %q", w[0])
	}
}

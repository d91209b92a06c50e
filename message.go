package lirc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PacketSize is the largest packet lircd broadcasts to its clients.
const PacketSize = 256

// PacketEOF is broadcast when the driver's input has ended.
const PacketEOF = "0000000008000000 00 __EOF lirc\n"

// ButtonPress represents the IR Remote Key Press ButtonPress
type ButtonPress struct {
	// Code is the decoded code, printed as 16 hexadecimal digits.
	// It's usage in applications is deprecated and it should be ignored.
	Code uint64
	// RepeatCount shows how long the user has been holding down a button.
	// The counter will start at 0 and increment each time a new IR signal has been received.
	RepeatCount uint
	// ButtonName is the name of a key defined in the lircd.conf file.
	ButtonName string
	// Suffix is appended to ButtonName for release events, e.g. "_UP".
	Suffix string
	// RemoteControlName is the mandatory name attribute in the lircd.conf config file.
	RemoteControlName string
}

// Packet formats the press as the line broadcast to clients.
func (p ButtonPress) Packet() string {
	return fmt.Sprintf("%016x %02x %s%s %s\n",
		p.Code, p.RepeatCount, p.ButtonName, p.Suffix, p.RemoteControlName)
}

// IsEOF reports whether the press is the end of input marker.
func (p ButtonPress) IsEOF() bool {
	return p.RemoteControlName == InternalRemoteName && p.ButtonName == eofButton.Name
}

var eofPress = ButtonPress{
	Code:              uint64(EOFCode),
	ButtonName:        eofButton.Name,
	RemoteControlName: InternalRemoteName,
}

// ParseButtonPress parses a broadcast packet. The trailing newline is
// optional.
func ParseButtonPress(line string) (ButtonPress, error) {
	w := strings.Fields(line)
	if len(w) != 4 {
		return ButtonPress{}, fmt.Errorf("packet has %d fields, want 4", len(w))
	}
	if len(w[0]) != 16 {
		return ButtonPress{}, fmt.Errorf("code %q is not 16 hex digits", w[0])
	}

	code, err := strconv.ParseUint(w[0], 16, 64)
	if err != nil {
		return ButtonPress{}, fmt.Errorf("code not parseable as hex: %w", err)
	}

	repeats, err := strconv.ParseUint(w[1], 16, 0)
	if err != nil {
		return ButtonPress{}, fmt.Errorf("repeat count not parseable as hex: %w", err)
	}

	return ButtonPress{
		Code:              code,
		RepeatCount:       uint(repeats),
		ButtonName:        w[2],
		RemoteControlName: w[3],
	}, nil
}

// CommandReply is the message sent back after a command.
type CommandReply struct {
	// Command is the command that was handled.
	Command string
	// Success is whether the command was successful.
	Success bool
	// Data is the data of the reply, or the error message.
	Data []string
}

func successReply(command string, data ...string) CommandReply {
	return CommandReply{Command: command, Success: true, Data: data}
}

func errorReply(command string, err error) CommandReply {
	return CommandReply{Command: command, Data: []string{err.Error()}}
}

// ErrUnsuccessfulCommand is returned with a reply when a command was not successful.
var ErrUnsuccessfulCommand = errors.New("lirc: unsuccessful command")

// Package bridge exposes a TWI register file over a framed serial link.
// The firmware runs a Server on top of the memory-mapped registers; the
// host runs a Client, which implements core.Registers and core.PinRouter
// so a polled core.Bus can drive real silicon from a PC.
package bridge

import (
	"sort"

	"megatwi/core"
	"megatwi/protocol"
)

// Version is reported by the identify command.
const Version = "megatwi-bridge/1"

// Command identifiers, host to firmware.
const (
	CmdIdentify  uint32 = 0x01
	CmdRegRead   uint32 = 0x02
	CmdRegWrite  uint32 = 0x03
	CmdRoutePins uint32 = 0x04
)

// Response identifiers, firmware to host.
const (
	RespIdentify uint32 = 0x41
	RespRegValue uint32 = 0x42
	RespAck      uint32 = 0x43
	RespError    uint32 = 0x7F
)

// Error codes carried by RespError.
const (
	CodeUnknownCommand uint8 = 1
	CodeMalformed      uint8 = 2
	CodeBadRegister    uint8 = 3
)

// RemoteError is a failure reported by the firmware.
type RemoteError struct {
	Code uint8
}

func (e *RemoteError) Error() string {
	switch e.Code {
	case CodeUnknownCommand:
		return "bridge: unknown command"
	case CodeMalformed:
		return "bridge: malformed arguments"
	case CodeBadRegister:
		return "bridge: register out of range"
	default:
		return "bridge: remote error"
	}
}

var (
	errUnknownCommand = &RemoteError{Code: CodeUnknownCommand}
	errMalformed      = &RemoteError{Code: CodeMalformed}
	errBadRegister    = &RemoteError{Code: CodeBadRegister}
)

// Handler decodes its arguments from args and appends the response
// payload, starting with the response identifier, to resp.
type Handler func(args *protocol.Reader, resp []byte) ([]byte, error)

// Command is one registry entry.
type Command struct {
	ID      uint32
	Name    string
	Format  string // argument list, e.g. "reg=%c value=%c"
	Handler Handler
}

// Registry maps command identifiers to handlers.
type Registry struct {
	commands map[uint32]*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[uint32]*Command)}
}

// Register adds a command. A later registration under the same ID
// replaces the earlier one.
func (r *Registry) Register(id uint32, name, format string, h Handler) {
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: h}
}

// Lookup returns the command registered under id.
func (r *Registry) Lookup(id uint32) (*Command, bool) {
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Commands returns the registered commands ordered by ID.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, *cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dispatch decodes the command identifier from payload and runs its
// handler.
func (r *Registry) Dispatch(payload []byte, resp []byte) ([]byte, error) {
	args := protocol.NewReader(payload)
	id, err := args.Uint()
	if err != nil {
		return resp, errMalformed
	}
	cmd, ok := r.Lookup(id)
	if !ok || cmd.Handler == nil {
		return resp, errUnknownCommand
	}
	return cmd.Handler(&args, resp)
}

// CommandName returns the name of a built-in command, for logging.
func CommandName(id uint32) string {
	switch id {
	case CmdIdentify:
		return "identify"
	case CmdRegRead:
		return "reg_read"
	case CmdRegWrite:
		return "reg_write"
	case CmdRoutePins:
		return "route_pins"
	default:
		return "unknown"
	}
}

func validRegister(v uint32) bool {
	return v >= uint32(core.RegMasterControlA) && v <= uint32(core.RegMasterData)
}

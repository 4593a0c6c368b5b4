package core

import (
	"errors"
	"strings"
	"sync"

	"coildriver/protocol"
)

// CommandHandler decodes its own arguments from data
type CommandHandler func(data *[]byte) error

// Command is a command (host to device) or, with a nil Handler, a response
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "shape=%c frequency=%u"
	Handler CommandHandler
}

// CommandRegistry assigns IDs in registration order. Firmware and host build
// the same registry, so the order is the wire contract.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands []*Command
	byName   map[string]*Command
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{byName: make(map[string]*Command)}
}

// Register adds a message and returns its ID. Registering a name twice
// returns the existing ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cmd, ok := r.byName[name]; ok {
		return cmd.ID
	}

	cmd := &Command{
		ID:      uint16(len(r.commands)),
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.commands = append(r.commands, cmd)
	r.byName[name] = cmd
	return cmd.ID
}

// GetCommand retrieves a message by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// Lookup retrieves a message by name
func (r *CommandRegistry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[name]
	return cmd, ok
}

// Count returns the number of registered messages
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler registered for cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return errors.New("unknown command ID: " + itoa(int(cmdID)))
	}
	if cmd.Handler == nil {
		return errors.New("not a command: " + cmd.Name)
	}
	return cmd.Handler(data)
}

// GetDictionary lists every message, one "name format" line each, in ID order
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, cmd := range r.commands {
		b.WriteString(cmd.Name)
		if cmd.Format != "" {
			b.WriteByte(' ')
			b.WriteString(cmd.Format)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// DecodeArgs decodes the arguments described by format ("a=%c b=%u") from data.
// Every integer type travels as a VLQ; %s and %*s arguments are not supported.
func DecodeArgs(format string, data *[]byte) (map[string]uint32, error) {
	args := make(map[string]uint32)
	for _, field := range strings.Fields(format) {
		name, typ, ok := strings.Cut(field, "=")
		if !ok {
			return nil, errors.New("malformed format field: " + field)
		}
		if strings.HasSuffix(typ, "s") {
			return nil, errors.New("unsupported argument type: " + field)
		}
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return nil, err
		}
		args[name] = v
	}
	return args, nil
}

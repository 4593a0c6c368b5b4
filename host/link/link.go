// Package link talks to the coil driver firmware over a serial port
package link

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"coildriver/core"
	"coildriver/host/serial"
	"coildriver/protocol"
)

var (
	ErrTimeout      = errors.New("timed out waiting for response")
	ErrNotConnected = errors.New("not connected to device")
)

// Response is a decoded message from the device
type Response struct {
	Name string
	Args map[string]uint32
}

// WaveState is the decoded wave_state response
type WaveState struct {
	Config core.WaveConfig
	Active bool
	Square core.SquareTiming
	Table  core.TableParams
}

// Link is a connection to one coil driver
type Link struct {
	port     io.ReadWriteCloser
	registry *core.CommandRegistry
	log      logrus.FieldLogger

	mu      sync.Mutex
	seq     uint8
	pending []byte
	Timeout time.Duration
}

// Dial opens the serial device and returns a Link
func Dial(cfg *serial.Config, log logrus.FieldLogger) (*Link, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	l := New(port, log)
	if err := port.Flush(); err != nil {
		l.log.WithError(err).Debug("flush failed")
	}
	return l, nil
}

// New wraps an already open port
func New(port io.ReadWriteCloser, log logrus.FieldLogger) *Link {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Link{
		port:     port,
		registry: core.NewWaveRegistry(),
		log:      log,
		Timeout:  time.Second,
	}
}

// Close closes the underlying port
func (l *Link) Close() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// Dictionary returns the command set the link speaks
func (l *Link) Dictionary() string {
	return l.registry.GetDictionary()
}

// Send encodes and writes one command
func (l *Link) Send(name string, args ...uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.send(name, args)
}

func (l *Link) send(name string, args []uint32) error {
	if l.port == nil {
		return ErrNotConnected
	}

	cmd, ok := l.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	if want := len(strings.Fields(cmd.Format)); want != len(args) {
		return fmt.Errorf("%s takes %d arguments, got %d", name, want, len(args))
	}

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, uint32(cmd.ID))
	for _, v := range args {
		protocol.EncodeVLQUint(output, v)
	}

	l.log.WithFields(logrus.Fields{"cmd": name, "seq": l.seq, "args": args}).Debug("send")
	if err := protocol.WriteFrame(l.port, l.seq, output.Result()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	l.seq = (l.seq + 1) & protocol.MessageSeqMask
	return nil
}

// Receive waits for the next response
func (l *Link) Receive() (Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.receive()
}

func (l *Link) receive() (Response, error) {
	if l.port == nil {
		return Response{}, ErrNotConnected
	}

	deadline := time.Now().Add(l.Timeout)
	buf := make([]byte, 64)
	for {
		for len(l.pending) > 0 {
			frame, n, err := protocol.ParseFrame(l.pending)
			if errors.Is(err, protocol.ErrNeedMore) {
				l.pending = l.pending[n:]
				break
			}
			l.pending = l.pending[n:]
			if err != nil {
				l.log.WithError(err).Warn("dropping corrupt frame")
				continue
			}
			return l.decode(frame.Payload)
		}

		if time.Now().After(deadline) {
			return Response{}, ErrTimeout
		}

		n, err := l.port.Read(buf)
		if n > 0 {
			l.pending = append(l.pending, buf[:n]...)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Response{}, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func (l *Link) decode(payload []byte) (Response, error) {
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return Response{}, fmt.Errorf("decode response id: %w", err)
	}

	cmd, ok := l.registry.GetCommand(uint16(id))
	if !ok {
		return Response{}, fmt.Errorf("unknown response id %d", id)
	}

	args, err := core.DecodeArgs(cmd.Format, &payload)
	if err != nil {
		return Response{}, fmt.Errorf("decode %s: %w", cmd.Name, err)
	}

	l.log.WithFields(logrus.Fields{"msg": cmd.Name, "args": args}).Debug("recv")
	return Response{Name: cmd.Name, Args: args}, nil
}

// Call sends a command and waits for a response named expect
func (l *Link) Call(expect, name string, args ...uint32) (Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.send(name, args); err != nil {
		return Response{}, err
	}
	for {
		resp, err := l.receive()
		if err != nil {
			return Response{}, err
		}
		if resp.Name == expect {
			return resp, nil
		}
		l.log.WithField("msg", resp.Name).Debug("skipping unexpected response")
	}
}

// StatusError reports a non-zero wave_status
type StatusError struct {
	Code uint8
}

func (e *StatusError) Error() string {
	switch e.Code {
	case core.StatusOutOfRange:
		return "device rejected wave: frequency out of range"
	case core.StatusInvalid:
		return "device rejected wave: invalid shape"
	case core.StatusStoreError:
		return "device store failed"
	case core.StatusNoProgram:
		return "device has no wave configured"
	}
	return fmt.Sprintf("device status %d", e.Code)
}

// Unwrap maps the status onto the matching core error
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case core.StatusOutOfRange:
		return core.ErrFrequencyOutOfRange
	case core.StatusInvalid:
		return core.ErrUnknownShape
	case core.StatusStoreError:
		return core.ErrStore
	case core.StatusNoProgram:
		return core.ErrNoProgram
	}
	return nil
}

func (l *Link) status(name string, args ...uint32) error {
	resp, err := l.Call("wave_status", name, args...)
	if err != nil {
		return err
	}
	if code := uint8(resp.Args["status"]); code != core.StatusOK {
		return &StatusError{Code: code}
	}
	return nil
}

// SetWave applies cfg on the device
func (l *Link) SetWave(cfg core.WaveConfig) error {
	mode := cfg.Mode()
	return l.status("set_wave",
		uint32(mode&core.ModeShapeMask),
		uint32(mode&^core.ModeShapeMask),
		math.Float32bits(float32(cfg.Frequency)))
}

// SaveWave persists the active wave on the device
func (l *Link) SaveWave() error {
	return l.status("save_wave")
}

// LoadWave makes the device reload and apply its stored wave
func (l *Link) LoadWave() error {
	return l.status("load_wave")
}

// GetWave reads the active wave and its derived timer parameters
func (l *Link) GetWave() (WaveState, error) {
	resp, err := l.Call("wave_state", "get_wave")
	if err != nil {
		return WaveState{}, err
	}

	a := resp.Args
	cfg, err := core.ConfigFromMode(uint8(a["shape"])|uint8(a["flags"]), float64(math.Float32frombits(a["frequency"])))
	if err != nil {
		return WaveState{}, err
	}
	return WaveState{
		Config: cfg,
		Active: a["active"] != 0,
		Square: core.SquareTiming{RepeatCount: uint8(a["repeat"]), Interval: uint16(a["interval"])},
		Table:  core.TableParams{Length: uint16(a["length"]), Scale: uint8(a["scale"])},
	}, nil
}

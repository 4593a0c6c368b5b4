package core

import (
	"errors"
	"fmt"
	"math"

	"coildriver/protocol"
)

// Status codes reported in wave_status
const (
	StatusOK         = 0
	StatusOutOfRange = 1
	StatusInvalid    = 2
	StatusStoreError = 3
	StatusNoProgram  = 4
)

// Store persists the selected wave across power cycles.
type Store interface {
	Save(cfg WaveConfig) error
	Load() (WaveConfig, error)
}

// ResponseWriter sends an encoded response payload back to the host.
type ResponseWriter func(payload []byte)

// WaveService exposes a Player through the command protocol.
type WaveService struct {
	registry *CommandRegistry
	player   *Player
	store    Store
	respond  ResponseWriter
}

// NewWaveRegistry returns a registry with the wave command set and no
// handlers. Hosts use it to map names to the IDs the firmware assigns.
func NewWaveRegistry() *CommandRegistry {
	r := NewCommandRegistry()
	registerWaveCommands(r, nil)
	return r
}

// NewWaveService registers the wave commands for player. store may be nil,
// in which case save_wave and load_wave report StatusStoreError.
func NewWaveService(player *Player, store Store, respond ResponseWriter) *WaveService {
	s := &WaveService{
		registry: NewCommandRegistry(),
		player:   player,
		store:    store,
		respond:  respond,
	}
	registerWaveCommands(s.registry, s)
	return s
}

// registerWaveCommands fixes the command IDs; the order must not change.
func registerWaveCommands(r *CommandRegistry, s *WaveService) {
	// Response messages (MCU -> Host)
	r.Register("wave_status", "status=%c", nil)
	r.Register("wave_state", "shape=%c flags=%c frequency=%u repeat=%c interval=%hu scale=%c length=%hu active=%c", nil)

	if s == nil {
		r.Register("set_wave", "shape=%c flags=%c frequency=%u", nil)
		r.Register("get_wave", "", nil)
		r.Register("save_wave", "", nil)
		r.Register("load_wave", "", nil)
		return
	}
	r.Register("set_wave", "shape=%c flags=%c frequency=%u", s.handleSetWave)
	r.Register("get_wave", "", s.handleGetWave)
	r.Register("save_wave", "", s.handleSaveWave)
	r.Register("load_wave", "", s.handleLoadWave)
}

// Registry returns the registry holding the service's commands.
func (s *WaveService) Registry() *CommandRegistry {
	return s.registry
}

// Dispatch runs one command; it matches protocol.CommandHandler.
func (s *WaveService) Dispatch(cmdID uint16, data *[]byte) error {
	return s.registry.Dispatch(cmdID, data)
}

// StatusFromError maps an apply or store error to a wave_status code.
func StatusFromError(err error) uint8 {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrFrequencyOutOfRange), errors.Is(err, ErrTableOverflow):
		return StatusOutOfRange
	case errors.Is(err, ErrNoStore), errors.Is(err, ErrStore):
		return StatusStoreError
	case errors.Is(err, ErrNoProgram):
		return StatusNoProgram
	default:
		return StatusInvalid
	}
}

// handleSetWave applies a new wave
// Format: set_wave shape=%c flags=%c frequency=%u
func (s *WaveService) handleSetWave(data *[]byte) error {
	shape, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	flags, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	bits, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	var cfg WaveConfig
	if shape > ModeShapeMask {
		err = ErrUnknownShape
	} else {
		cfg, err = ConfigFromMode(uint8(shape)|uint8(flags&ModeBidirectional), float64(math.Float32frombits(bits)))
	}
	if err == nil {
		err = s.player.Apply(cfg)
	}
	if err != nil {
		DebugAsync("set_wave rejected: " + err.Error())
	}
	s.sendStatus(StatusFromError(err))
	return nil
}

// handleGetWave reports the active wave and its derived parameters
func (s *WaveService) handleGetWave(data *[]byte) error {
	cfg, active := s.player.Config()

	var repeat, interval, scale, length uint32
	switch prog := s.player.Program().(type) {
	case SquareProgram:
		repeat = uint32(prog.Timing.RepeatCount)
		interval = uint32(prog.Timing.Interval)
	case TableProgram:
		scale = uint32(prog.Params.Scale)
		length = uint32(prog.Params.Length)
	}

	s.send("wave_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(cfg.Shape))
		protocol.EncodeVLQUint(output, uint32(cfg.Mode()&^ModeShapeMask))
		protocol.EncodeVLQUint(output, math.Float32bits(float32(cfg.Frequency)))
		protocol.EncodeVLQUint(output, repeat)
		protocol.EncodeVLQUint(output, interval)
		protocol.EncodeVLQUint(output, scale)
		protocol.EncodeVLQUint(output, length)
		if active {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
	})
	return nil
}

// handleSaveWave persists the active wave
func (s *WaveService) handleSaveWave(data *[]byte) error {
	s.sendStatus(StatusFromError(s.Save()))
	return nil
}

// handleLoadWave loads the persisted wave and applies it
func (s *WaveService) handleLoadWave(data *[]byte) error {
	s.sendStatus(StatusFromError(s.Load()))
	return nil
}

// Save writes the active wave to the store.
func (s *WaveService) Save() error {
	if s.store == nil {
		return ErrNoStore
	}
	cfg, active := s.player.Config()
	if !active {
		return ErrNoProgram
	}
	if err := s.store.Save(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	RecordEvent(EvtSave, uint8(cfg.Shape), float32Bits(cfg.Frequency), 0)
	return nil
}

// Load reads the stored wave and applies it. The active wave is kept if the
// stored one cannot be played.
func (s *WaveService) Load() error {
	if s.store == nil {
		return ErrNoStore
	}
	cfg, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	RecordEvent(EvtLoad, uint8(cfg.Shape), float32Bits(cfg.Frequency), 0)
	return s.player.Apply(cfg)
}

func (s *WaveService) sendStatus(status uint8) {
	s.send("wave_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(status))
	})
}

// send encodes a response message and hands it to the response writer
func (s *WaveService) send(name string, args func(output protocol.OutputBuffer)) {
	if s.respond == nil {
		return
	}
	cmd, ok := s.registry.Lookup(name)
	if !ok {
		return
	}

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, uint32(cmd.ID))
	args(output)
	s.respond(output.Result())
}

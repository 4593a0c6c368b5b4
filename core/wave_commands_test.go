package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coildriver/protocol"
)

type memStore struct {
	cfg   WaveConfig
	saved bool
	err   error
}

func (m *memStore) Save(cfg WaveConfig) error {
	if m.err != nil {
		return m.err
	}
	m.cfg = cfg
	m.saved = true
	return nil
}

func (m *memStore) Load() (WaveConfig, error) {
	if m.err != nil {
		return WaveConfig{}, m.err
	}
	return m.cfg, nil
}

type serviceHarness struct {
	t         *testing.T
	svc       *WaveService
	player    *Player
	out       *mockOutput
	responses [][]byte
}

func newServiceHarness(t *testing.T, store Store) *serviceHarness {
	h := &serviceHarness{t: t}
	h.player, h.out, _ = newTestPlayer(t, DefaultHardware())
	h.svc = NewWaveService(h.player, store, func(payload []byte) {
		h.responses = append(h.responses, append([]byte(nil), payload...))
	})
	return h
}

// call encodes a command by name, using the host-side registry for its ID
func (h *serviceHarness) call(name string, args ...uint32) {
	h.t.Helper()
	cmd, ok := NewWaveRegistry().Lookup(name)
	require.True(h.t, ok, name)

	output := protocol.NewScratchOutput()
	for _, v := range args {
		protocol.EncodeVLQUint(output, v)
	}
	data := output.Result()
	require.NoError(h.t, h.svc.Dispatch(cmd.ID, &data))
	assert.Empty(h.t, data)
}

// last decodes the most recent response
func (h *serviceHarness) last() (string, map[string]uint32) {
	h.t.Helper()
	require.NotEmpty(h.t, h.responses)
	payload := h.responses[len(h.responses)-1]

	id, err := protocol.DecodeVLQUint(&payload)
	require.NoError(h.t, err)
	cmd, ok := NewWaveRegistry().GetCommand(uint16(id))
	require.True(h.t, ok)

	args, err := DecodeArgs(cmd.Format, &payload)
	require.NoError(h.t, err)
	return cmd.Name, args
}

func TestRegistriesAgree(t *testing.T) {
	svc := NewWaveService(nil, nil, nil)
	assert.Equal(t, NewWaveRegistry().GetDictionary(), svc.Registry().GetDictionary())
}

func TestSetGetWave(t *testing.T) {
	h := newServiceHarness(t, nil)

	h.call("set_wave", uint32(ShapeSquare), 0, math.Float32bits(400))
	name, args := h.last()
	assert.Equal(t, "wave_status", name)
	assert.Equal(t, uint32(StatusOK), args["status"])

	h.call("get_wave")
	name, args = h.last()
	assert.Equal(t, "wave_state", name)
	assert.Equal(t, uint32(ShapeSquare), args["shape"])
	assert.Equal(t, float32(400), math.Float32frombits(args["frequency"]))
	assert.Equal(t, uint32(80), args["repeat"])
	assert.Equal(t, uint32(250), args["interval"])
	assert.Equal(t, uint32(1), args["active"])

	h.call("set_wave", uint32(ShapeSine), ModeBidirectional, math.Float32bits(440))
	h.call("get_wave")
	_, args = h.last()
	assert.Equal(t, uint32(ShapeSine), args["shape"])
	assert.Equal(t, uint32(ModeBidirectional), args["flags"])
	assert.Equal(t, uint32(1), args["scale"])
	assert.Equal(t, uint32(142), args["length"])
}

func TestSetWaveRejected(t *testing.T) {
	h := newServiceHarness(t, nil)

	h.call("set_wave", uint32(ShapeSaw), 0, math.Float32bits(1e6))
	_, args := h.last()
	assert.Equal(t, uint32(StatusOutOfRange), args["status"])

	h.call("set_wave", 3, 0, math.Float32bits(100))
	_, args = h.last()
	assert.Equal(t, uint32(StatusInvalid), args["status"])

	// Bits above the shape field are not a shape
	h.call("set_wave", 5, 0, math.Float32bits(100))
	_, args = h.last()
	assert.Equal(t, uint32(StatusInvalid), args["status"])

	h.call("get_wave")
	_, args = h.last()
	assert.Equal(t, uint32(0), args["active"])
}

func TestSaveLoadWave(t *testing.T) {
	store := &memStore{}
	h := newServiceHarness(t, store)

	h.call("save_wave")
	_, args := h.last()
	assert.Equal(t, uint32(StatusNoProgram), args["status"])

	h.call("set_wave", uint32(ShapeSaw), 0, math.Float32bits(50))
	h.call("save_wave")
	_, args = h.last()
	assert.Equal(t, uint32(StatusOK), args["status"])
	assert.True(t, store.saved)
	assert.Equal(t, WaveConfig{Shape: ShapeSaw, Frequency: 50}, store.cfg)

	store.cfg = WaveConfig{Shape: ShapeSine, Frequency: 125}
	h.call("load_wave")
	_, args = h.last()
	assert.Equal(t, uint32(StatusOK), args["status"])

	cfg, _ := h.player.Config()
	assert.Equal(t, store.cfg, cfg)
}

func TestStoreErrors(t *testing.T) {
	h := newServiceHarness(t, nil)
	h.call("load_wave")
	_, args := h.last()
	assert.Equal(t, uint32(StatusStoreError), args["status"])

	store := &memStore{err: errors.New("i2c nack")}
	h = newServiceHarness(t, store)
	h.call("load_wave")
	_, args = h.last()
	assert.Equal(t, uint32(StatusStoreError), args["status"])
	assert.ErrorIs(t, h.svc.Load(), ErrStore)
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, uint8(StatusOK), StatusFromError(nil))
	assert.Equal(t, uint8(StatusOutOfRange), StatusFromError(ErrFrequencyOutOfRange))
	assert.Equal(t, uint8(StatusStoreError), StatusFromError(ErrNoStore))
	assert.Equal(t, uint8(StatusInvalid), StatusFromError(ErrUnknownShape))
}

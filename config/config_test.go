package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coildriver/core"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, core.DefaultHardware(), cfg.Hardware())
	assert.Equal(t, "square", cfg.Wave.Shape)
	assert.Equal(t, 440.0, cfg.Wave.Frequency)
	assert.Equal(t, uint16(0x50), cfg.EEPROM.Address)
	assert.Equal(t, 115200, cfg.Serial.Baud)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{
		"clock_rate": 1000000,
		"table_prescaler": 16,
		"table_capacity": 250,
		"wave": {"shape": "saw", "frequency": 12.5, "bidirectional": true},
		"pins": {"pwm": "gpio2", "complement": "gpio3"}
	}`))
	require.NoError(t, err)

	hw := cfg.Hardware()
	assert.Equal(t, uint32(1000000), hw.ClockRate)
	assert.Equal(t, uint32(16), hw.TablePrescaler)
	assert.Equal(t, uint8(64), hw.MinRepeat)
	assert.Equal(t, uint16(250), hw.TableCapacity)

	wave, err := cfg.WaveConfig()
	require.NoError(t, err)
	assert.Equal(t, core.WaveConfig{Shape: core.ShapeSaw, Frequency: 12.5, Bidirectional: true}, wave)
	assert.Equal(t, "gpio2", cfg.Pins.PWM)
	assert.Equal(t, "gpio15", cfg.Pins.Square)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := LoadConfig([]byte(`{"wave": {"shape": "triangle"}}`))
	assert.ErrorIs(t, err, core.ErrUnknownShape)

	_, err = LoadConfig([]byte(`{"table_capacity": 600}`))
	assert.ErrorIs(t, err, core.ErrTableOverflow)

	_, err = LoadConfig([]byte(`{"clock_rate": "fast"}`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coil.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"wave": {"shape": "sine", "frequency": 60}}`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 60.0, cfg.Wave.Frequency)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	// The reference board plays its startup wave
	wave, err := cfg.WaveConfig()
	require.NoError(t, err)
	_, err = core.ResolveTable(wave.Frequency, cfg.Hardware())
	assert.NoError(t, err)
}

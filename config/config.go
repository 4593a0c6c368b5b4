package config

import (
	"encoding/json"
	"fmt"
	"os"

	"coildriver/core"
)

// DeviceConfig describes a coil driver board and its startup wave
type DeviceConfig struct {
	ClockRate      uint32 `json:"clock_rate"`      // Timer clock in Hz
	TablePrescaler uint32 `json:"table_prescaler"` // Clock cycles per table tick
	MinRepeat      uint8  `json:"min_repeat"`      // Smallest square repeat count
	TableCapacity  uint16 `json:"table_capacity"`  // Table entries to use

	Wave   WaveSettings `json:"wave"`
	Pins   PinConfig    `json:"pins"`
	EEPROM EEPROMConfig `json:"eeprom"`
	Serial SerialConfig `json:"serial"`
}

// WaveSettings is the wave played when nothing is stored
type WaveSettings struct {
	Shape         string  `json:"shape"`
	Frequency     float64 `json:"frequency"`
	Bidirectional bool    `json:"bidirectional"`
}

// PinConfig names the output pins
type PinConfig struct {
	PWM        string `json:"pwm"`        // Sample output
	Complement string `json:"complement"` // Inverted sample output for bidirectional drive
	Square     string `json:"square"`     // Square wave toggle pin
}

// EEPROMConfig locates the persisted wave record
type EEPROMConfig struct {
	Address uint16 `json:"address"` // I2C address
	Offset  int64  `json:"offset"`  // Byte offset of the record
}

// SerialConfig is used by the host tool
type SerialConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*DeviceConfig, error) {
	var config DeviceConfig

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *DeviceConfig) {
	hw := core.DefaultHardware()
	if config.ClockRate == 0 {
		config.ClockRate = hw.ClockRate
	}
	if config.TablePrescaler == 0 {
		config.TablePrescaler = hw.TablePrescaler
	}
	if config.MinRepeat == 0 {
		config.MinRepeat = hw.MinRepeat
	}
	if config.TableCapacity == 0 {
		config.TableCapacity = hw.TableCapacity
	}

	if config.Wave.Shape == "" {
		config.Wave.Shape = "square"
	}
	if config.Wave.Frequency == 0 {
		config.Wave.Frequency = 440.0
	}

	if config.Pins.PWM == "" {
		config.Pins.PWM = "gpio16"
	}
	if config.Pins.Square == "" {
		config.Pins.Square = "gpio15"
	}

	if config.EEPROM.Address == 0 {
		config.EEPROM.Address = 0x50 // AT24Cxx with A0-A2 low
	}

	if config.Serial.Device == "" {
		config.Serial.Device = "/dev/ttyACM0"
	}
	if config.Serial.Baud == 0 {
		config.Serial.Baud = 115200
	}
}

// Validate checks the hardware description and the startup wave
func (c *DeviceConfig) Validate() error {
	if err := c.Hardware().Validate(); err != nil {
		return err
	}
	if _, err := c.WaveConfig(); err != nil {
		return err
	}
	if c.EEPROM.Offset < 0 {
		return fmt.Errorf("eeprom offset %d is negative", c.EEPROM.Offset)
	}
	return nil
}

// Hardware returns the timer description used by the resolver
func (c *DeviceConfig) Hardware() core.Hardware {
	return core.Hardware{
		ClockRate:      c.ClockRate,
		TablePrescaler: c.TablePrescaler,
		MinRepeat:      c.MinRepeat,
		TableCapacity:  c.TableCapacity,
	}
}

// WaveConfig returns the startup wave
func (c *DeviceConfig) WaveConfig() (core.WaveConfig, error) {
	shape, err := core.ParseShape(c.Wave.Shape)
	if err != nil {
		return core.WaveConfig{}, err
	}
	return core.WaveConfig{
		Shape:         shape,
		Frequency:     c.Wave.Frequency,
		Bidirectional: c.Wave.Bidirectional,
	}, nil
}

// DefaultConfig returns the configuration of the reference board:
// an RP2040 whose 1MHz timer drives the coil from gpio16/gpio17
func DefaultConfig() *DeviceConfig {
	cfg := &DeviceConfig{
		ClockRate:      1000000,
		TablePrescaler: 16,
		MinRepeat:      64,
		TableCapacity:  core.TableCapacity,
		Wave: WaveSettings{
			Shape:     "sine",
			Frequency: 50.0,
		},
		Pins: PinConfig{
			PWM:        "gpio16",
			Complement: "gpio17",
			Square:     "gpio15",
		},
	}
	applyDefaults(cfg)
	return cfg
}

// Package persist stores the selected wave in non-volatile memory.
//
// Layout at the configured offset:
//
//	+0  mode byte (shape | bidirectional flag)
//	+1  frequency, IEEE-754 float32, little endian
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"coildriver/core"
)

// RecordSize is the number of bytes one stored wave occupies
const RecordSize = 5

var (
	ErrBlank      = errors.New("no wave stored")
	ErrShortWrite = errors.New("short write to wave store")
)

// Device is random-access non-volatile memory such as an EEPROM.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

// Store reads and writes the wave record on a Device.
type Store struct {
	dev    Device
	offset int64
}

// New creates a Store keeping its record at offset on dev.
func New(dev Device, offset int64) *Store {
	return &Store{dev: dev, offset: offset}
}

// Save writes cfg.
func (s *Store) Save(cfg core.WaveConfig) error {
	var rec [RecordSize]byte
	rec[0] = cfg.Mode()
	binary.LittleEndian.PutUint32(rec[1:], math.Float32bits(float32(cfg.Frequency)))

	n, err := s.dev.WriteAt(rec[:], s.offset)
	if err != nil {
		return fmt.Errorf("write wave record: %w", err)
	}
	if n != RecordSize {
		return ErrShortWrite
	}
	return nil
}

// Load reads the stored wave. A never-written record returns ErrBlank.
func (s *Store) Load() (core.WaveConfig, error) {
	var rec [RecordSize]byte
	if _, err := s.dev.ReadAt(rec[:], s.offset); err != nil {
		return core.WaveConfig{}, fmt.Errorf("read wave record: %w", err)
	}

	if blank(rec[:]) {
		return core.WaveConfig{}, ErrBlank
	}

	freq := math.Float32frombits(binary.LittleEndian.Uint32(rec[1:]))
	return core.ConfigFromMode(rec[0], float64(freq))
}

// blank reports whether rec is in the erased state of an EEPROM
func blank(rec []byte) bool {
	for _, b := range rec {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// Memory is a RAM-backed Device, erased to 0xFF.
type Memory struct {
	data []byte
}

// NewMemory creates an erased Memory of size bytes.
func NewMemory(size int) *Memory {
	m := &Memory{data: make([]byte, size)}
	for i := range m.data {
		m.data[i] = 0xFF
	}
	return m
}

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.data[off:], p), nil
}

//go:build rp2040

package main

import (
	"machine"
	"time"

	"coildriver/config"
	"coildriver/core"
	"coildriver/protocol"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	receiver     *protocol.Receiver
	service      *core.WaveService

	// Debug counters
	messagesSent uint32
	msgerrors    uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
	txSeq                    uint8
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	if err := InitUSB(); err != nil {
		return
	}
	InitDebugUART()

	cfg := config.DefaultConfig()

	out, err := NewCoilOutput(cfg.Pins.PWM, cfg.Pins.Complement, cfg.Pins.Square)
	if err != nil {
		core.DebugPrintln("output: " + err.Error())
		return
	}
	core.SetOutputDriver(out)

	tick := InitTicker()
	core.SetTickDriver(tick)

	player, err := core.NewPlayer(cfg.Hardware(), core.MustOutput(), core.MustTick())
	if err != nil {
		core.DebugPrintln("player: " + err.Error())
		return
	}
	tick.Attach(player)

	var store core.Store
	if s, err := OpenEEPROM(cfg.EEPROM.Address, cfg.EEPROM.Offset); err != nil {
		core.DebugPrintln("eeprom: " + err.Error())
	} else {
		store = s
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	service = core.NewWaveService(player, store, queueResponse)
	receiver = protocol.NewReceiver(service.Dispatch)

	startWave(service, player, cfg)

	go usbReaderLoop()

	for {
		func() {
			// Recover from panics in the main loop to prevent a firmware crash
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			if inputBuffer.Available() > 0 {
				receiver.Receive(inputBuffer)
			}

			// Retry output left over by a failed write
			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}
		}()

		time.Sleep(100 * time.Microsecond)
	}
}

// startWave plays the stored wave, falling back to the configured default
func startWave(s *core.WaveService, player *core.Player, cfg *config.DeviceConfig) {
	err := s.Load()
	if err == nil {
		return
	}
	core.DebugPrintln("stored wave not used: " + err.Error())

	def, err := cfg.WaveConfig()
	if err == nil {
		err = player.Apply(def)
	}
	if err != nil {
		core.DebugPrintln("default wave: " + err.Error())
	}
	core.DumpEventRing()
}

// queueResponse frames a response payload and sends it right away so the
// scratch buffer never holds more than one frame
func queueResponse(payload []byte) {
	err := protocol.EncodeFrame(outputBuffer, txSeq, func(output protocol.OutputBuffer) {
		output.Output(payload)
	})
	if err != nil {
		msgerrors++
		outputBuffer.Reset()
		return
	}
	txSeq = (txSeq + 1) & protocol.MessageSeqMask
	writeUSB()
	messagesSent++
}

// usbReaderLoop moves received USB bytes into the input FIFO
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// Fresh connection: drop partial frames from the previous one
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes the pending output, treating repeated failures as a disconnect
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}

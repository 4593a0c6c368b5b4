package core

import "math"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// WaveEvent captures a configuration event for post-mortem analysis
type WaveEvent struct {
	EventType uint8  // Event type code
	Shape     uint8  // Shape of the config involved
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtApply  = 1 // Program published (v1=repeat/scale, v2=interval/length)
	EvtReject = 2 // Config rejected (v1=frequency bits, v2=stage)
	EvtLoad   = 3 // Config loaded from store (v1=frequency bits)
	EvtSave   = 4 // Config saved to store (v1=frequency bits)
)

const (
	EventRingSize = 16 // Keep last 16 events
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	eventRing     [EventRingSize]WaveEvent
	eventRingHead uint8

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordEvent captures an event in the ring buffer
func RecordEvent(eventType, shape uint8, value1, value2 uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	idx := eventRingHead
	eventRing[idx] = WaveEvent{
		EventType: eventType,
		Shape:     shape,
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []WaveEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	events := make([]WaveEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType != 0 {
			events = append(events, evt)
		}
	}
	return events
}

// DumpEventRing outputs the event ring buffer
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[WAVE] === Event Ring Dump ===")
	for _, evt := range Events() {
		var name string
		switch evt.EventType {
		case EvtApply:
			name = "APPLY"
		case EvtReject:
			name = "REJECT!"
		case EvtLoad:
			name = "LOAD"
		case EvtSave:
			name = "SAVE"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[WAVE] " + name +
			" shape=" + Shape(evt.Shape).String() +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[WAVE] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range eventRing {
		eventRing[i] = WaveEvent{}
	}
	eventRingHead = 0
}

func float32Bits(f float64) uint32 {
	return math.Float32bits(float32(f))
}

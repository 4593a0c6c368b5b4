// Package protocol implements the framed VLQ link between the coil driver and its host
package protocol

// Version represents the firmware protocol version
const Version = "0.1.0"

// Protocol constants
const (
	MessageMax     = 128 // Maximum output buffer size
	MessageHeader  = 2   // Length and sequence bytes
	MessageTrailer = 3   // CRC16 and sync byte

	// Message sequence masks
	MessageSeqMask = 0x0F
	MessageDest    = 0x10
)

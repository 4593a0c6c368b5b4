package protocol

import (
	"errors"
	"io"
)

// Frame layout: [len][seq][payload...][crc hi][crc lo][0x7E]
const (
	MessageLengthMin = MessageHeader + MessageTrailer
	MessageLengthMax = 64
	MessageValueSync = 0x7E
	MaxPayload       = MessageLengthMax - MessageLengthMin
)

var (
	ErrNeedMore      = errors.New("incomplete frame")
	ErrBadFrame      = errors.New("corrupt frame")
	ErrFrameTooLarge = errors.New("payload too large for frame")
)

// Frame is a decoded message block
type Frame struct {
	Sequence uint8
	Payload  []byte
}

// EncodeFrame writes a frame whose payload is produced by body
func EncodeFrame(output OutputBuffer, seq uint8, body func(output OutputBuffer)) error {
	cursor := output.CurPosition()

	// Length placeholder and sequence
	output.Output([]byte{0, MessageDest | (seq & MessageSeqMask)})
	if body != nil {
		body(output)
	}

	written := len(output.DataSince(cursor))
	if written-MessageHeader > MaxPayload {
		return ErrFrameTooLarge
	}
	output.Update(cursor, uint8(written+MessageTrailer))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
	return nil
}

// WriteFrame encodes payload as one frame and writes it to w
func WriteFrame(w io.Writer, seq uint8, payload []byte) error {
	output := NewScratchOutput()
	err := EncodeFrame(output, seq, func(output OutputBuffer) {
		output.Output(payload)
	})
	if err != nil {
		return err
	}
	_, err = w.Write(output.Result())
	return err
}

// ParseFrame decodes the first frame in data and returns the number of bytes
// consumed. ErrNeedMore consumes only leading sync bytes. ErrBadFrame consumes up to and
// including the next sync byte so the caller can resynchronize.
func ParseFrame(data []byte) (Frame, int, error) {
	skipped := 0
	for skipped < len(data) && data[skipped] == MessageValueSync {
		skipped++
	}
	data = data[skipped:]

	if len(data) < MessageLengthMin {
		return Frame{}, skipped, ErrNeedMore
	}

	msgLen := int(data[0])
	seq := data[1]
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax || seq&^MessageSeqMask != MessageDest {
		return Frame{}, skipped + resync(data), ErrBadFrame
	}

	if len(data) < msgLen {
		return Frame{}, skipped, ErrNeedMore
	}

	if data[msgLen-1] != MessageValueSync {
		return Frame{}, skipped + resync(data), ErrBadFrame
	}

	frameCRC := uint16(data[msgLen-3])<<8 | uint16(data[msgLen-2])
	if frameCRC != CRC16(data[:msgLen-MessageTrailer]) {
		return Frame{}, skipped + msgLen, ErrBadFrame
	}

	return Frame{
		Sequence: seq & MessageSeqMask,
		Payload:  data[MessageHeader : msgLen-MessageTrailer],
	}, skipped + msgLen, nil
}

// resync returns the bytes to drop to reach the byte after the next sync
func resync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i + 1
		}
	}
	return len(data)
}

// CommandHandler handles one decoded command; it consumes its arguments from data
type CommandHandler func(cmdID uint16, data *[]byte) error

// DispatchFrame decodes every command in a frame payload and calls handler
// for each. Decoding stops at the first handler error.
func DispatchFrame(payload []byte, handler CommandHandler) error {
	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			return err
		}
		if err := handler(uint16(cmdID), &payload); err != nil {
			return err
		}
	}
	return nil
}

// Receiver drains frames from an input buffer and dispatches their commands
type Receiver struct {
	handler CommandHandler
	lastSeq uint8
	Frames  uint32 // Frames dispatched
	Errors  uint32 // Corrupt frames and handler errors
	LastErr error
}

// NewReceiver creates a Receiver that dispatches to handler
func NewReceiver(handler CommandHandler) *Receiver {
	return &Receiver{handler: handler}
}

// LastSequence returns the sequence number of the last good frame
func (r *Receiver) LastSequence() uint8 {
	return r.lastSeq
}

// Receive processes all complete frames in input
func (r *Receiver) Receive(input InputBuffer) {
	for input.Available() > 0 {
		frame, n, err := ParseFrame(input.Data())
		if errors.Is(err, ErrNeedMore) {
			input.Pop(n)
			return
		}
		if err != nil {
			input.Pop(n)
			r.Errors++
			r.LastErr = err
			continue
		}

		// The payload aliases the input; pop only after dispatch
		r.lastSeq = frame.Sequence
		r.Frames++
		if err := DispatchFrame(frame.Payload, r.handler); err != nil {
			r.Errors++
			r.LastErr = err
		}
		input.Pop(n)
	}
}

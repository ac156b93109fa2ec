package audioring

import (
	"encoding/binary"
	"errors"
	"time"
)

var ErrShortFrame = errors.New("audioring: short frame header")

// Frame is one chunk of microphone PCM16 as delivered by the device.
type Frame struct {
	Data       []byte
	Timestamp  time.Time
	SampleRate int32
	Channels   int16
}

const frameHeader = 8 + 4 + 2 + 4

// MarshalBinary layout: timestamp(8) rate(4) channels(2) len(4) data.
func (f *Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, frameHeader+len(f.Data))
	le := binary.LittleEndian
	le.PutUint64(buf[0:], uint64(f.Timestamp.UnixNano()))
	le.PutUint32(buf[8:], uint32(f.SampleRate))
	le.PutUint16(buf[12:], uint16(f.Channels))
	le.PutUint32(buf[14:], uint32(len(f.Data)))
	copy(buf[frameHeader:], f.Data)
	return buf, nil
}

func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < frameHeader {
		return ErrShortFrame
	}
	le := binary.LittleEndian
	f.Timestamp = time.Unix(0, int64(le.Uint64(data[0:])))
	f.SampleRate = int32(le.Uint32(data[8:]))
	f.Channels = int16(le.Uint16(data[12:]))
	n := int(le.Uint32(data[14:]))
	if len(data)-frameHeader < n {
		return ErrShortFrame
	}
	f.Data = make([]byte, n)
	copy(f.Data, data[frameHeader:frameHeader+n])
	return nil
}

// Buffer keeps the most recent frames within a fixed byte budget. When a push
// does not fit, the oldest frames are dropped.
type Buffer interface {
	Push(f Frame) error
	Pop() (Frame, bool)
	// Drain pops everything in arrival order.
	Drain() []Frame
	Len() int
	Capacity() int
	Reset()
}

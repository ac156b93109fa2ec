package audioring

import (
	"encoding/binary"
	"errors"

	"github.com/smallnest/ringbuffer"
)

var ErrFrameTooLarge = errors.New("audio frame too large for buffer")

type rbImpl struct {
	size int
	rb   *ringbuffer.RingBuffer
}

// Capacity implements Buffer.
func (r *rbImpl) Capacity() int {
	return r.size
}

// Len implements Buffer. It counts bytes, prefixes included.
func (r *rbImpl) Len() int {
	return r.rb.Length()
}

func (r *rbImpl) Reset() {
	r.rb.Reset()
}

// readRecord reads one length-prefixed record; nil means the ring is empty or
// corrupt.
func (r *rbImpl) readRecord() []byte {
	if r.rb.IsEmpty() {
		return nil
	}
	var prefix [4]byte
	if n, err := r.rb.Read(prefix[:]); err != nil || n != 4 {
		return nil
	}
	size := int(binary.LittleEndian.Uint32(prefix[:]))
	data := make([]byte, size)
	if size == 0 {
		return data
	}
	if n, err := r.rb.Read(data); err != nil || n != size {
		return nil
	}
	return data
}

// Pop implements Buffer.
func (r *rbImpl) Pop() (Frame, bool) {
	data := r.readRecord()
	if data == nil {
		return Frame{}, false
	}
	var f Frame
	if err := f.UnmarshalBinary(data); err != nil {
		return Frame{}, false
	}
	return f, true
}

// Push implements Buffer.
func (r *rbImpl) Push(f Frame) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	need := len(data) + 4
	if need > r.rb.Capacity() {
		return ErrFrameTooLarge
	}
	for r.rb.Free() < need {
		if r.readRecord() == nil {
			// corrupted; start over
			r.rb.Reset()
			break
		}
	}

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := r.rb.Write(prefix[:]); err != nil {
		return err
	}
	_, err = r.rb.Write(data)
	return err
}

// Drain implements Buffer.
func (r *rbImpl) Drain() []Frame {
	var out []Frame
	for {
		f, ok := r.Pop()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}

func New(size int) Buffer {
	return &rbImpl{
		size: size,
		rb:   ringbuffer.New(size).SetBlocking(false),
	}
}

package lib

import (
	"log"

	rp "github.com/Clouded-Sabre/ringpool/lib"
)

// Buffer is one fragment of a chained packet buffer. Data is a window into
// either caller-owned memory (an external buffer) or a pool chunk. Ownership
// moves with the pointer: whoever holds the head of a chain frees it.
type Buffer struct {
	Next   *Buffer
	Data   []byte
	TotLen int // this fragment plus all fragments after it
	chunk  *rp.Element
	flags  uint8 // TCP flag bits riding along with delivered data (PSH)
}

// NewExternalBuffer wraps caller-owned memory in a single-fragment chain.
func NewExternalBuffer(data []byte) *Buffer {
	return &Buffer{
		Data:   data,
		TotLen: len(data),
	}
}

// allocBuffer draws a pool chunk big enough for n bytes and returns a
// single-fragment chain viewing its first n bytes.
func allocBuffer(n int) (*Buffer, error) {
	if n > chunkSize {
		return nil, ErrBufferTooShort
	}
	elem := Pool.GetElement()
	if elem == nil {
		return nil, ErrPoolExhausted
	}
	payload := elem.Data.(*Payload)
	payload.length = n
	return &Buffer{
		Data:   payload.payloadBytes[:n],
		TotLen: n,
		chunk:  elem,
	}, nil
}

// StripHeader drops n bytes from the front of the chain. The strip must stay
// within the first fragment.
func (b *Buffer) StripHeader(n int) error {
	if n > len(b.Data) {
		return ErrBufferTooShort
	}
	b.Data = b.Data[n:]
	b.TotLen -= n
	return nil
}

// Realloc truncates the chain to totLen bytes, freeing fragments that fall
// entirely past the new length.
func (b *Buffer) Realloc(totLen int) {
	if totLen >= b.TotLen {
		return
	}
	rem := totLen
	cur := b
	for cur != nil {
		if rem <= len(cur.Data) {
			cur.Data = cur.Data[:rem]
			tail := cur.Next
			cur.Next = nil
			if tail != nil {
				tail.Free()
			}
		}
		cur.TotLen = rem
		rem -= len(cur.Data)
		cur = cur.Next
	}
}

// Cat appends tail to the chain. The caller gives up its reference to tail.
func (b *Buffer) Cat(tail *Buffer) {
	if tail == nil {
		return
	}
	cur := b
	for {
		cur.TotLen += tail.TotLen
		if cur.Next == nil {
			break
		}
		cur = cur.Next
	}
	cur.Next = tail
}

// Clen counts the fragments in the chain.
func (b *Buffer) Clen() int {
	n := 0
	for cur := b; cur != nil; cur = cur.Next {
		n++
	}
	return n
}

// Free releases the whole chain, returning pool chunks where present.
func (b *Buffer) Free() {
	cur := b
	for cur != nil {
		next := cur.Next
		if cur.chunk != nil {
			if rp.Debug {
				log.Printf("Buffer.Free: returning chunk of %d bytes\n", len(cur.Data))
			}
			Pool.ReturnElement(cur.chunk)
			cur.chunk = nil
		}
		cur.Next = nil
		cur.Data = nil
		cur = next
	}
}

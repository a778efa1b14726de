package lib

import (
	"log"

	rp "github.com/Clouded-Sabre/ringpool/lib"
)

// Segment is one queued TCP segment, either on the retransmission queues
// (unacked, unsent) or on the out-of-order queue. The header pointer is only
// meaningful for segments that still carry their wire header.
type Segment struct {
	next     *Segment
	buf      *Buffer
	hdr      *TCPHeader
	seqno    uint32
	len      uint32 // payload length, SYN/FIN pseudo-byte not included
	tcpFlags uint8
	zeroCopy bool // buf memory is owned elsewhere, trim by offset only
	dataOff  int  // zero-copy trim offset into buf.Data
}

// seqLen is the sequence space the segment occupies. SYN and FIN each count
// for one byte.
func (s *Segment) seqLen() uint32 {
	l := s.len
	if s.tcpFlags&(SYNFlag|FINFlag) != 0 {
		l++
	}
	return l
}

// payload is the live data view, honoring any zero-copy trim offset.
func (s *Segment) payload() []byte {
	if s.buf == nil {
		return nil
	}
	if s.zeroCopy && s.dataOff > 0 && s.dataOff <= len(s.buf.Data) {
		return s.buf.Data[s.dataOff:]
	}
	return s.buf.Data
}

// segCopy deep-copies seg into pool-backed memory so it can outlive the
// input call. Used when admitting a segment to the out-of-order queue.
func segCopy(seg *Segment) (*Segment, error) {
	var buf *Buffer
	if seg.len > 0 {
		var err error
		buf, err = allocBuffer(int(seg.len))
		if err != nil {
			return nil, err
		}
		copy(buf.Data, seg.payload())
	}
	hdr := *seg.hdr
	hdr.Options = nil // option bytes belong to the caller's packet
	return &Segment{
		buf:      buf,
		hdr:      &hdr,
		seqno:    seg.seqno,
		len:      seg.len,
		tcpFlags: seg.tcpFlags,
	}, nil
}

// free releases one segment and its buffer.
func (s *Segment) free() {
	if s.buf != nil && !s.zeroCopy {
		s.buf.Free()
	}
	s.buf = nil
	s.next = nil
}

// segsFree releases a whole segment list and reports how many buffer
// fragments were returned.
func segsFree(head *Segment) int {
	freed := 0
	for seg := head; seg != nil; {
		next := seg.next
		if seg.buf != nil {
			freed += seg.buf.Clen()
		}
		seg.free()
		seg = next
	}
	if rp.Debug && freed > 0 {
		log.Printf("segsFree: released %d buffer fragments\n", freed)
	}
	return freed
}

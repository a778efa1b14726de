package lib

// tcpShrinkSegment trims seg from the head up to ackno after a partial ACK.
// Fully acknowledged fragments are released; the fragment the ack lands in is
// trimmed in place. Returns the number of fragments released.
func tcpShrinkSegment(pcb *PCB, seg *Segment, ackno uint32) uint16 {
	var count uint16

	// release leading fragments the ack covers completely, keeping the last
	// one so the partial trim below always has a target
	for seg.buf != nil && seg.buf.Next != nil &&
		seqGEQ(ackno, seg.seqno+uint32(len(seg.buf.Data))) {
		frag := seg.buf
		adv := uint32(len(frag.Data))
		seg.buf = frag.Next
		frag.Next = nil
		frag.Free()
		count++
		seg.len -= adv
		seg.seqno += adv
	}

	if seg.buf != nil && seqGT(ackno, seg.seqno) {
		trim := ackno - seg.seqno
		if pcb.flags.timestamp {
			// the serialized options area must stay 4-byte aligned
			trim &^= 3
		}
		if trim > uint32(len(seg.buf.Data)) {
			trim = uint32(len(seg.buf.Data))
		}
		_ = seg.buf.StripHeader(int(trim)) // trim bounded above
		seg.len -= trim
		seg.seqno += trim
	}

	seg.hdr.SeqNo = seg.seqno
	return count
}

// tcpShrinkZCSegment is the zero-copy variant: the payload memory belongs to
// the application, so the trim only advances offsets and never touches the
// bytes.
func tcpShrinkZCSegment(pcb *PCB, seg *Segment, ackno uint32) uint16 {
	var count uint16

	for seg.buf != nil && seg.buf.Next != nil &&
		seqGEQ(ackno, seg.seqno+uint32(len(seg.buf.Data)-seg.dataOff)) {
		frag := seg.buf
		adv := uint32(len(frag.Data) - seg.dataOff)
		seg.buf = frag.Next
		frag.Next = nil
		seg.dataOff = 0
		count++
		seg.len -= adv
		seg.seqno += adv
	}

	if seqGT(ackno, seg.seqno) {
		trim := ackno - seg.seqno
		seg.dataOff += int(trim)
		seg.len -= trim
		seg.seqno = ackno
	}

	seg.hdr.SeqNo = seg.seqno
	return count
}

// ackSegments walks a retransmission queue and retires everything ackno
// covers. A segment the ack splits is shrunk in place, except FIN-bearing
// segments which are only ever retired whole; retransmitting a little
// duplicate data beats the corner cases of a FIN trim.
func (e *Engine) ackSegments(pcb *PCB, ackno uint32, queue **Segment) {
	for *queue != nil && seqGT(ackno, (*queue).seqno) {
		seg := *queue
		if seqLT(ackno, seg.seqno+seg.seqLen()) {
			if seg.tcpFlags&FINFlag != 0 {
				break
			}
			var removed uint16
			if seg.zeroCopy {
				removed = tcpShrinkZCSegment(pcb, seg, ackno)
			} else {
				removed = tcpShrinkSegment(pcb, seg, ackno)
			}
			if removed > pcb.sndQueueLen {
				pcb.sndQueueLen = 0
			} else {
				pcb.sndQueueLen -= removed
			}
			break
		}

		*queue = seg.next

		// an acked FIN occupies sequence space but carried no payload, keep
		// it out of the sent-completion count
		if pcb.acked != 0 && seg.tcpFlags&FINFlag != 0 {
			pcb.acked--
		}

		if seg.buf != nil {
			clen := uint16(seg.buf.Clen())
			if clen > pcb.sndQueueLen {
				pcb.sndQueueLen = 0
			} else {
				pcb.sndQueueLen -= clen
			}
		}
		seg.free()
	}
}

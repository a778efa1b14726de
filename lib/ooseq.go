package lib

import "log"

// trimRight cuts an out-of-order segment down to newLen payload bytes,
// shrinking its buffer with it.
func (s *Segment) trimRight(newLen uint32) {
	s.len = newLen
	if s.buf != nil {
		s.buf.Realloc(int(newLen))
	}
}

// oosInsertSegment links cseg in front of next, deleting queued segments the
// new one covers and trimming cseg against the first survivor. The queue
// stays sequence ordered and pairwise non-overlapping.
func (e *Engine) oosInsertSegment(pcb *PCB, cseg *Segment, next *Segment, in *inputData) {
	if cseg.tcpFlags&FINFlag != 0 {
		// a FIN bounds the stream, nothing behind it can matter
		segsFree(next)
		next = nil
	} else {
		for next != nil && seqGEQ(in.seqno+cseg.len, next.seqno+next.len) {
			// the queue may hold a FIN, carry it over before deleting
			if next.tcpFlags&FINFlag != 0 {
				cseg.tcpFlags |= FINFlag
			}
			old := next
			next = next.next
			old.free()
		}
		if next != nil && seqGT(in.seqno+cseg.len, next.seqno) {
			cseg.trimRight(next.seqno - in.seqno)
			if e.cfg.Debug && cseg.seqno+cseg.len != next.seqno {
				log.Printf("oosInsertSegment: trim mismatch, end %d next %d\n",
					cseg.seqno+cseg.len, next.seqno)
			}
		}
	}
	cseg.next = next
}

// copyForQueue clones the transient input segment into pool memory for the
// out-of-order queue. Pool exhaustion drops the segment; the peer will
// retransmit it.
func (e *Engine) copyForQueue(in *inputData) *Segment {
	cseg, err := segCopy(&in.inseg)
	if err != nil {
		e.stats.OoseqDropped.Inc()
		if e.cfg.Debug {
			log.Printf("copyForQueue: %v\n", err)
		}
		return nil
	}
	e.stats.OoseqQueued.Inc()
	return cseg
}

// queueOutOfOrder files the current segment on the out-of-order queue at its
// sequence position. Exact-duplicate starts keep whichever segment carries
// more data; overlaps are trimmed so the queue never holds a byte twice.
func (e *Engine) queueOutOfOrder(pcb *PCB, in *inputData) {
	if pcb.ooseq == nil {
		pcb.ooseq = e.copyForQueue(in)
		return
	}

	var prev *Segment
	for next := pcb.ooseq; next != nil; next = next.next {
		if in.seqno == next.seqno {
			// same starting point, keep the longer segment
			if in.inseg.len > next.len {
				cseg := e.copyForQueue(in)
				if cseg != nil {
					if prev != nil {
						prev.next = cseg
					} else {
						pcb.ooseq = cseg
					}
					e.oosInsertSegment(pcb, cseg, next, in)
				}
			}
			// equal or shorter: ditch the incoming segment
			return
		}
		if prev == nil {
			if seqLT(in.seqno, next.seqno) {
				// new first segment
				cseg := e.copyForQueue(in)
				if cseg != nil {
					pcb.ooseq = cseg
					e.oosInsertSegment(pcb, cseg, next, in)
				}
				return
			}
		} else if seqBetween(in.seqno, prev.seqno+1, next.seqno-1) {
			// lands between prev and next; trim prev's tail overlap first
			cseg := e.copyForQueue(in)
			if cseg != nil {
				if seqGT(prev.seqno+prev.len, in.seqno) {
					prev.trimRight(in.seqno - prev.seqno)
				}
				prev.next = cseg
				e.oosInsertSegment(pcb, cseg, next, in)
			}
			return
		}
		if next.next == nil && seqGT(in.seqno, next.seqno) {
			// highest sequence number so far, append at the tail
			if next.tcpFlags&FINFlag != 0 {
				// the queued FIN already bounds everything we could add
				return
			}
			cseg := e.copyForQueue(in)
			if cseg == nil {
				return
			}
			next.next = cseg
			if seqGT(next.seqno+next.len, in.seqno) {
				next.trimRight(in.seqno - next.seqno)
			}
			// never queue past our own receive window
			if seqGT(in.seqno+in.tcplen, pcb.rcvNxt+pcb.rcvWnd) {
				if e.cfg.Debug {
					log.Printf("queueOutOfOrder: peer overran receive window, seqno %d len %d right edge %d\n",
						in.seqno, in.tcplen, pcb.rcvNxt+pcb.rcvWnd)
				}
				if cseg.tcpFlags&FINFlag != 0 {
					// trimming removes the FIN's byte of sequence space
					cseg.tcpFlags &^= FINFlag
				}
				cseg.trimRight(pcb.rcvNxt + pcb.rcvWnd - in.seqno)
				in.tcplen = cseg.seqLen()
				if e.cfg.Debug && in.seqno+in.tcplen != pcb.rcvNxt+pcb.rcvWnd {
					log.Printf("queueOutOfOrder: trim mismatch, end %d right edge %d\n",
						in.seqno+in.tcplen, pcb.rcvNxt+pcb.rcvWnd)
				}
			}
			return
		}
		prev = next
	}
}

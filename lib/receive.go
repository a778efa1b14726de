package lib

import "log"

// fastRetransmit enters fast recovery on the third duplicate ACK and asks the
// transmitter to resend the presumed-lost segment.
func (e *Engine) fastRetransmit(pcb *PCB) {
	if pcb.unacked == nil || pcb.flags.inFastRecovery {
		return
	}
	// halve the flight size but keep at least two segments in the air
	flight := pcb.sndNxt - pcb.lastAck
	ssthresh := flight / 2
	if ssthresh < 2*uint32(pcb.mss) {
		ssthresh = 2 * uint32(pcb.mss)
	}
	pcb.ssthresh = ssthresh
	pcb.cwnd = pcb.ssthresh + 3*uint32(pcb.mss)
	pcb.flags.inFastRecovery = true
	e.stats.FastRetransmits.Inc()
	e.tx.FastRetransmit(pcb)
}

// receive handles the ACK side and the data side of one segment for a
// synchronized connection. The ACK phase retires retransmission state and
// feeds the congestion strategy; the data phase sequences payload into
// recvData and the out-of-order queue.
func (e *Engine) receive(pcb *PCB, in *inputData) {
	foundDupack := false
	persist := false

	if in.flags&ACKFlag != 0 {
		rightWndEdge := pcb.sndWnd + pcb.sndWl2

		// update the send window when the segment is newer than the last
		// update, or same-ackno announcements grow it
		if seqLT(pcb.sndWl1, in.seqno) ||
			(pcb.sndWl1 == in.seqno && seqLT(pcb.sndWl2, in.ackno)) ||
			(pcb.sndWl2 == in.ackno && pcb.scaledSndWnd(in.tcphdr.Wnd) > pcb.sndWnd) {
			pcb.sndWnd = pcb.scaledSndWnd(in.tcphdr.Wnd)
			// remember the biggest window the peer ever announced
			if pcb.sndWndMax < pcb.sndWnd {
				pcb.sndWndMax = pcb.sndWnd
			}
			pcb.sndWl1 = in.seqno
			pcb.sndWl2 = in.ackno
			if pcb.sndWnd == 0 {
				if pcb.persistBackoff == 0 {
					persist = true
				}
			} else if pcb.persistBackoff > 0 {
				pcb.persistBackoff = 0
			}
			if e.cfg.Debug {
				log.Printf("receive: window update %d\n", pcb.sndWnd)
			}
		}

		/* A duplicate ack (Stevens Vol II p970) requires all five:
		   1) no new data acked
		   2) no payload
		   3) advertised window unchanged
		   4) outstanding unacknowledged data (retransmit timer running)
		   5) ackno equals the highest ack seen so far */
		if seqLEQ(in.ackno, pcb.lastAck) {
			pcb.acked = 0
			if in.tcplen == 0 {
				if pcb.sndWl2+pcb.sndWnd == rightWndEdge {
					if pcb.rtime >= 0 {
						if pcb.lastAck == in.ackno {
							foundDupack = true
							e.stats.DupAcks.Inc()
							if pcb.dupAcks+1 > pcb.dupAcks {
								pcb.dupAcks++
							}
							if pcb.dupAcks > fastRexmitDupAcks {
								pcb.cc.AckReceived(pcb, AckDuplicate)
							} else if pcb.dupAcks == fastRexmitDupAcks {
								e.fastRetransmit(pcb)
							}
						}
					}
				}
			}
			if !foundDupack {
				pcb.dupAcks = 0
			}
		} else if seqBetween(in.ackno, pcb.lastAck+1, pcb.sndNxt) {
			// the ACK acknowledges new data

			if pcb.flags.inFastRecovery {
				pcb.cc.PostRecovery(pcb)
				pcb.flags.inFastRecovery = false
			}

			pcb.nrtx = 0
			pcb.rto = (pcb.sa >> 3) + pcb.sv

			pcb.acked = uint16(in.ackno - pcb.lastAck)
			pcb.sndBuf += uint32(pcb.acked)

			pcb.dupAcks = 0
			pcb.lastAck = in.ackno

			if pcb.state >= Established {
				pcb.cc.AckReceived(pcb, AckNew)
			}

			e.ackSegments(pcb, in.ackno, &pcb.unacked)

			if pcb.unacked == nil {
				if persist {
					// peer closed its window with this update
					pcb.persistCnt = 0
					pcb.persistBackoff = 1
				}
				pcb.rtime = -1
			} else {
				pcb.rtime = 0
			}
		} else {
			// ACK for something we never sent
			pcb.acked = 0
			e.tx.SendEmptyAck(pcb)
		}

		// segments sit on unsent after a retransmission even though they
		// were sent once, so the ACK may cover them too
		e.ackSegments(pcb, in.ackno, &pcb.unsent)

		// RTT sample when the timed sequence number is covered
		if pcb.rttest != 0 && seqLT(pcb.rtseq, in.ackno) {
			m := int16(e.clock.Ticks() - pcb.rttest)

			// VJ's integer filter, straight from his paper
			m = m - (pcb.sa >> 3)
			pcb.sa += m
			if m < 0 {
				m = -m
			}
			m = m - (pcb.sv >> 2)
			pcb.sv += m
			pcb.rto = (pcb.sa >> 3) + pcb.sv

			pcb.rttest = 0
		}
	}

	/* Past CLOSE_WAIT the peer's data stream already ended, segment text is
	   ignored (RFC 793 3.9). */
	if in.tcplen > 0 && pcb.state < CloseWait {
		// trim the left edge when the segment starts below rcv_nxt but
		// reaches into it
		if seqBetween(pcb.rcvNxt, in.seqno+1, in.seqno+in.tcplen-1) {
			off := pcb.rcvNxt - in.seqno
			p := in.inseg.buf
			if uint32(len(p.Data)) < off {
				newTotLen := p.TotLen - int(off)
				for p != nil && uint32(len(p.Data)) < off {
					off -= uint32(len(p.Data))
					p.TotLen = newTotLen
					p.Data = p.Data[:0]
					p = p.Next
				}
				_ = p.StripHeader(int(off))
			} else {
				_ = p.StripHeader(int(off))
			}
			in.inseg.len -= pcb.rcvNxt - in.seqno
			in.seqno = pcb.rcvNxt
			in.inseg.seqno = pcb.rcvNxt
			in.inseg.hdr.SeqNo = pcb.rcvNxt
		} else if seqLT(in.seqno, pcb.rcvNxt) {
			// entirely below rcv_nxt, a duplicate of handled data
			if e.cfg.Debug {
				log.Printf("receive: duplicate seqno %d\n", in.seqno)
			}
			e.ackNow(pcb)
		}

		// only sequence numbers inside the window get processed further
		if seqBetween(in.seqno, pcb.rcvNxt, pcb.rcvNxt+pcb.rcvWnd-1) {
			if pcb.rcvNxt == in.seqno {
				e.receiveInSequence(pcb, in)
			} else {
				// out of sequence: ack what we have and queue the segment
				e.tx.SendEmptyAck(pcb)
				e.queueOutOfOrder(pcb, in)
			}
		} else {
			e.tx.SendEmptyAck(pcb)
		}
	} else {
		// zero-length segments outside the window still get an ACK
		if !seqBetween(in.seqno, pcb.rcvNxt, pcb.rcvNxt+pcb.rcvWnd-1) {
			e.ackNow(pcb)
		}
	}
}

// receiveInSequence accepts the segment at rcv_nxt: trims it to the window,
// reconciles it with the out-of-order queue, advances rcv_nxt and drains any
// queued segments that became in-sequence.
func (e *Engine) receiveInSequence(pcb *PCB, in *inputData) {
	in.tcplen = in.inseg.seqLen()

	if in.tcplen > pcb.rcvWnd {
		// peer overran our receive window, cut the segment down to fit
		if e.cfg.Debug {
			log.Printf("receive: peer overran receive window, seqno %d len %d right edge %d\n",
				in.seqno, in.tcplen, pcb.rcvNxt+pcb.rcvWnd)
		}
		if in.inseg.tcpFlags&FINFlag != 0 {
			// the FIN's byte of sequence space is part of what we trim
			in.inseg.tcpFlags &^= FINFlag
		}
		newLen := pcb.rcvWnd
		if in.inseg.tcpFlags&SYNFlag != 0 {
			newLen--
		}
		in.inseg.trimRight(newLen)
		in.tcplen = in.inseg.seqLen()
		if e.cfg.Debug && in.seqno+in.tcplen != pcb.rcvNxt+pcb.rcvWnd {
			log.Printf("receive: segment not trimmed correctly to rcv_wnd, end %d edge %d\n",
				in.seqno+in.tcplen, pcb.rcvNxt+pcb.rcvWnd)
		}
	}

	if pcb.ooseq != nil {
		if in.inseg.tcpFlags&FINFlag != 0 {
			// an in-order FIN means everything out of order arrived
			// in-order after all, drop the queue
			if e.cfg.Debug {
				log.Println("receive: in-order FIN, binning ooseq queue")
			}
			segsFree(pcb.ooseq)
			pcb.ooseq = nil
		} else {
			next := pcb.ooseq
			// drop queued segments this one covers whole, inheriting a
			// queued FIN
			for next != nil && seqGEQ(in.seqno+in.tcplen, next.seqno+next.len) {
				if next.tcpFlags&FINFlag != 0 && in.inseg.tcpFlags&SYNFlag == 0 {
					in.inseg.tcpFlags |= FINFlag
					in.tcplen = in.inseg.seqLen()
				}
				old := next
				next = next.next
				old.free()
			}
			// trim our right side against the first survivor
			if next != nil && seqGT(in.seqno+in.tcplen, next.seqno) {
				newLen := next.seqno - in.seqno
				if in.inseg.tcpFlags&SYNFlag != 0 {
					newLen--
				}
				in.inseg.trimRight(newLen)
				in.tcplen = in.inseg.seqLen()
				if e.cfg.Debug && in.seqno+in.tcplen != next.seqno {
					log.Printf("receive: segment not trimmed correctly to ooseq queue, end %d next %d\n",
						in.seqno+in.tcplen, next.seqno)
				}
			}
			pcb.ooseq = next
		}
	}

	pcb.rcvNxt = in.seqno + in.tcplen

	if in.tcplen > pcb.rcvWnd {
		// cannot happen after the trims above
		pcb.rcvWnd = 0
	} else {
		pcb.rcvWnd -= in.tcplen
	}
	pcb.updateRcvAnnWnd()

	// hand the payload over; ownership of the chain moves to recvData
	if in.inseg.buf != nil && in.inseg.buf.TotLen > 0 {
		in.recvData = in.inseg.buf
		in.inseg.buf = nil
	}
	if in.inseg.tcpFlags&FINFlag != 0 {
		if e.cfg.Debug {
			log.Println("receive: received FIN")
		}
		in.recv.gotFin = true
	}

	// drain out-of-order segments that are now in sequence
	for pcb.ooseq != nil && pcb.ooseq.seqno == pcb.rcvNxt {
		cseg := pcb.ooseq
		seglen := cseg.seqLen()

		pcb.rcvNxt += seglen
		if seglen > pcb.rcvWnd {
			pcb.rcvWnd = 0
		} else {
			pcb.rcvWnd -= seglen
		}
		pcb.updateRcvAnnWnd()

		if cseg.buf != nil && cseg.buf.TotLen > 0 {
			if in.recvData != nil {
				in.recvData.Cat(cseg.buf)
			} else {
				in.recvData = cseg.buf
			}
			cseg.buf = nil
		}
		if cseg.tcpFlags&FINFlag != 0 {
			if e.cfg.Debug {
				log.Println("receive: dequeued FIN")
			}
			in.recv.gotFin = true
			if pcb.state == Established {
				// force the passive close transition now
				pcb.state = CloseWait
			}
		}

		pcb.ooseq = cseg.next
		cseg.free()
	}

	// multi-piece deliveries and small segments are acked immediately,
	// everything else may wait for the delayed-ACK timer
	if (in.recvData != nil && in.recvData.Next != nil) || e.quickAck(pcb, in) {
		e.ackNow(pcb)
	} else {
		e.ack(pcb)
	}
}

package lib

import "log"

// process runs the RFC 793 state machine for one inbound segment on a
// synchronized or handshaking connection. It returns true when an upcall
// aborted the connection, in which case the PCB is already gone.
func (e *Engine) process(pcb *PCB, in *inputData) (aborted bool) {
	if in.flags&RSTFlag != 0 {
		// first decide whether the reset is acceptable
		acceptable := false
		if pcb.state == SynSent {
			acceptable = in.ackno == pcb.sndNxt
		} else {
			acceptable = seqBetween(in.seqno, pcb.rcvNxt, pcb.rcvNxt+pcb.rcvWnd)
		}
		if acceptable {
			if e.cfg.Debug {
				log.Println("process: connection RESET")
			}
			in.recv.reset = true
			pcb.flags.ackDelay = false
		} else if e.cfg.Debug {
			log.Printf("process: unacceptable reset seqno %d rcv_nxt %d\n",
				in.seqno, pcb.rcvNxt)
		}
		return false
	}

	if in.flags&SYNFlag != 0 && pcb.state != SynSent && pcb.state != SynRcvd {
		// new connection attempt on a synchronized connection, likely the
		// remote end crashed and came back
		e.ackNow(pcb)
		return false
	}

	if !pcb.flags.rxClosed {
		// refresh the inactivity stamp unless rx is shut down
		pcb.tmr = e.clock.Ticks()
	}
	pcb.keepCntSent = 0

	e.parseOptions(pcb, in)

	switch pcb.state {
	case SynSent:
		if in.flags&ACKFlag != 0 && in.flags&SYNFlag != 0 &&
			pcb.unacked != nil && in.ackno == pcb.unacked.seqno+1 {
			pcb.rcvNxt = in.seqno + 1
			pcb.rcvAnnRightEdge = pcb.rcvNxt
			pcb.lastAck = in.ackno
			pcb.sndWnd = pcb.scaledSndWnd(in.tcphdr.Wnd)
			pcb.sndWndMax = pcb.sndWnd
			pcb.sndWl1 = in.seqno - 1 // force a window update on the next ACK
			pcb.state = Established

			if pcb.mss > pcb.advertisedMSS {
				pcb.mss = pcb.advertisedMSS
			}
			pcb.cc.Init(pcb)

			// take the SYN segment off the retransmission queue
			if pcb.sndQueueLen > 0 {
				pcb.sndQueueLen--
			}
			rseg := pcb.unacked
			pcb.unacked = rseg.next
			if pcb.unacked == nil {
				pcb.rtime = -1
			} else {
				pcb.rtime = 0
				pcb.nrtx = 0
			}
			rseg.free()

			if e.events.Connected(pcb) == ResultAborted {
				return true
			}
			e.ackNow(pcb)
		} else if in.flags&ACKFlag != 0 {
			// bare ACK in SYN_SENT means a half-open remnant; reset the
			// other side back to a non-synchronized state
			e.reset(in, in.ackno, in.seqno+in.tcplen)
		}

	case SynRcvd:
		if in.flags&ACKFlag != 0 {
			if seqBetween(in.ackno, pcb.lastAck+1, pcb.sndNxt) {
				pcb.state = Established
				if e.cfg.Debug {
					log.Printf("process: connection established %d -> %d\n",
						in.tcphdr.SrcPort, in.tcphdr.DstPort)
				}
				result := e.events.Accepted(pcb)
				if result != ResultOK {
					if result != ResultAborted {
						e.factory.Abort(pcb)
					}
					return true
				}
				oldCwnd := pcb.cwnd
				// the handshake ACK may carry data
				e.receive(pcb, in)

				// don't let the ACK for our SYN count as sent payload
				if pcb.acked != 0 {
					pcb.acked--
				}
				pcb.cwnd = oldCwnd
				pcb.cc.Init(pcb)

				if in.recv.gotFin {
					e.ackNow(pcb)
					pcb.state = CloseWait
				}
			} else {
				e.reset(in, in.ackno, in.seqno+in.tcplen)
			}
		} else if in.flags&SYNFlag != 0 && in.seqno == pcb.rcvNxt-1 {
			// another copy of the SYN, replay our SYN|ACK
			e.tx.Retransmit(pcb)
		}
		// a lone FIN in SYN_RCVD is ignored

	case CloseWait, Established:
		e.receive(pcb, in)
		if in.recv.gotFin { // passive close
			e.ackNow(pcb)
			pcb.state = CloseWait
		}

	case FinWait1:
		e.receive(pcb, in)
		if in.recv.gotFin {
			if in.flags&ACKFlag != 0 && in.ackno == pcb.sndNxt {
				// simultaneous arrival of their FIN and the ACK of ours
				e.ackNow(pcb)
				pcb.purge()
				pcb.state = TimeWait
			} else {
				e.ackNow(pcb)
				pcb.state = Closing
			}
		} else if in.flags&ACKFlag != 0 && in.ackno == pcb.sndNxt {
			pcb.state = FinWait2
		}

	case FinWait2:
		e.receive(pcb, in)
		if in.recv.gotFin {
			e.ackNow(pcb)
			pcb.purge()
			pcb.state = TimeWait
		}

	case Closing:
		e.receive(pcb, in)
		if in.flags&ACKFlag != 0 && in.ackno == pcb.sndNxt {
			pcb.purge()
			pcb.state = TimeWait
		}

	case LastAck:
		e.receive(pcb, in)
		if in.flags&ACKFlag != 0 && in.ackno == pcb.sndNxt {
			// don't move to CLOSED here, the caller owns the removal and a
			// state change now could leak queued segments
			in.recv.closed = true
		}
	}
	return false
}

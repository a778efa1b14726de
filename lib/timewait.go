package lib

import "log"

// timewaitInput handles a segment for a TIME_WAIT connection. RSTs are
// ignored (RFC 1337), a fresh SYN may recycle the block per RFC 6191, a FIN
// restarts the 2MSL wait, and anything else carrying sequence space is
// acknowledged.
func (e *Engine) timewaitInput(pcb *PCB, in *inputData) {
	if in.flags&RSTFlag != 0 {
		return
	}

	if in.flags&(SYNFlag|ACKFlag) == SYNFlag {
		// RFC 6191: the block may be reused when the SYN provably postdates
		// the old incarnation, by timestamp when both sides carry one,
		// otherwise by sequence number
		tsval, hasTS := parseTimestampOption(in.tcphdr.Options)
		withTS := hasTS && pcb.flags.timestamp
		reusable := (withTS && pcb.tsRecent < tsval) ||
			((!withTS || pcb.tsRecent == tsval) && seqGEQ(in.seqno, pcb.rcvNxt))
		reusable = reusable && pcb.OnTimeWaitReuse != nil
		if reusable {
			e.reusePCB(pcb, in)
		}
		// otherwise silently drop the SYN
		return
	} else if in.flags&FINFlag != 0 {
		// restart the 2MSL timeout
		pcb.tmr = e.clock.Ticks()
	}

	if in.tcplen > 0 {
		if in.flags&(SYNFlag|ACKFlag) == SYNFlag|ACKFlag {
			// out-of-state SYN|ACK with payload
			e.reset(in, in.ackno, in.seqno+in.tcplen)
		} else {
			e.ackNow(pcb)
			e.tx.Output(pcb)
		}
	}
}

// reusePCB recycles a TIME_WAIT block in place for a new inbound SYN, taking
// it straight to SYN_RCVD.
func (e *Engine) reusePCB(pcb *PCB, in *inputData) {
	pcb.recycle()
	pcb.state = SynRcvd
	pcb.rcvNxt = in.seqno + 1
	pcb.rcvAnnRightEdge = pcb.rcvNxt
	pcb.sndWl1 = in.seqno - 1 // force a window update on the first ACK
	pcb.advertisedMSS = e.sendMSS(pcb)
	pcb.mss = pcb.advertisedMSS

	e.parseOptions(pcb, in)

	wnd := e.initialRcvWnd(pcb)
	pcb.rcvWnd = wnd
	pcb.rcvAnnWnd = wnd
	pcb.rcvWndMax = wnd
	pcb.sndWnd = pcb.scaledSndWnd(in.tcphdr.Wnd)
	pcb.sndWndMax = pcb.sndWnd
	pcb.ssthresh = pcb.sndWnd
	if pcb.mss > pcb.advertisedMSS {
		pcb.mss = pcb.advertisedMSS
	}

	if err := pcb.OnTimeWaitReuse(pcb); err != nil {
		if e.cfg.Debug {
			log.Printf("reusePCB: reuse callback refused: %v\n", err)
		}
		return
	}
	e.stats.TimeWaitReuses.Inc()

	if err := e.tx.EnqueueFlags(pcb, SYNFlag|ACKFlag); err != nil {
		e.factory.Abandon(pcb)
		return
	}
	e.tx.Output(pcb)
}

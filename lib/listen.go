package lib

import "log"

// listenInput handles a segment addressed to a listener. An inbound SYN
// clones an embryonic PCB off the listener and answers with SYN|ACK; anything
// with ACK gets a RST; RST and FIN are ignored.
func (e *Engine) listenInput(pcb *PCB, in *inputData) {
	if in.flags&(RSTFlag|FINFlag) != 0 {
		return
	}

	if in.flags&ACKFlag != 0 {
		// an ACK can't belong to a connection we don't have
		e.reset(in, in.ackno+1, in.seqno+in.tcplen)
		return
	}

	if in.flags&SYNFlag == 0 {
		return
	}

	if e.cfg.Debug {
		log.Printf("listenInput: connection request %d -> %d\n",
			in.tcphdr.SrcPort, in.tcphdr.DstPort)
	}

	npcb := e.factory.Clone(pcb)
	if npcb == nil {
		// out of resources; the sender will retransmit the SYN when we may
		// have more
		if e.cfg.Debug {
			log.Println("listenInput: could not allocate PCB")
		}
		return
	}

	npcb.isIPv6 = in.iphdr.isIPv6
	npcb.localIP = in.iphdr.dst
	npcb.localPort = pcb.localPort
	npcb.remoteIP = in.iphdr.src
	npcb.remotePort = in.tcphdr.SrcPort
	npcb.state = SynRcvd
	npcb.rcvNxt = in.seqno + 1
	npcb.rcvAnnRightEdge = npcb.rcvNxt
	npcb.sndWl1 = in.seqno - 1 // force a window update on the first ACK

	npcb.sndScale = 0
	npcb.rcvScale = 0

	// fix our advertised MSS before the option parse so the clamp uses it
	npcb.advertisedMSS = e.sendMSS(npcb)

	e.parseOptions(npcb, in)

	wnd := e.initialRcvWnd(npcb)
	npcb.rcvWnd = wnd
	npcb.rcvAnnWnd = wnd
	npcb.rcvWndMax = wnd

	npcb.sndWnd = npcb.scaledSndWnd(in.tcphdr.Wnd)
	npcb.sndWndMax = npcb.sndWnd
	npcb.ssthresh = npcb.sndWnd
	if npcb.mss > npcb.advertisedMSS {
		npcb.mss = npcb.advertisedMSS
	}

	if err := e.factory.Register(pcb, npcb); err != nil {
		if e.cfg.Debug {
			log.Printf("listenInput: register failed: %v\n", err)
		}
		e.factory.Abandon(npcb)
		return
	}

	if err := e.tx.EnqueueFlags(npcb, SYNFlag|ACKFlag); err == nil {
		e.tx.Output(npcb)
	} else {
		e.factory.Abandon(npcb)
		return
	}

	e.factory.Accepted(pcb, npcb)
}

// initialRcvWnd is the receive window granted to a fresh connection, in
// bytes. The scale shift was already settled by the option parse.
func (e *Engine) initialRcvWnd(pcb *PCB) uint32 {
	return e.cfg.ReceiveWindow
}

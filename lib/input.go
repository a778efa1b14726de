package lib

import (
	"log"

	"github.com/pkg/errors"
)

// ErrConnReset is handed to the Error upcall when the peer resets an active
// connection.
var ErrConnReset = errors.New("connection reset by peer")

// recvFlags records what the state machine decided during one input call.
type recvFlags struct {
	reset  bool // acceptable RST arrived, connection is dead
	closed bool // close handshake finished in LAST_ACK
	gotFin bool // peer's FIN was sequenced, signal EOF
}

// inputData is the per-call working set. It never outlives one Engine.Input
// invocation; anything that must survive is copied into pool memory.
type inputData struct {
	iphdr  *parsedIPHeader
	tcphdr *TCPHeader
	seqno  uint32
	ackno  uint32
	flags  uint8
	tcplen uint32 // payload length plus one for SYN or FIN

	inseg    Segment // the arriving segment, trimmed in place
	recvData *Buffer // in-sequence data to hand to the application
	recv     recvFlags
}

// Input feeds one raw IP packet into the engine. pcb is the control block the
// caller's lookup produced for the packet's 4-tuple, or nil when there is
// none (a RST is then sent for non-RST segments). The returned Disposition
// tells the caller whether to remove and free the PCB; the engine never frees
// it directly.
func (e *Engine) Input(data []byte, pcb *PCB) Disposition {
	e.stats.SegmentsIn.Inc()

	in := inputData{}
	iphdr, err := parseIPHeader(data)
	if err != nil {
		e.stats.ShortDrops.Inc()
		if e.cfg.Debug {
			log.Printf("Input: dropping packet: %v\n", err)
		}
		return DispNone
	}
	in.iphdr = iphdr

	// trim to the length the IP header declares, then strip it
	if iphdr.totalLength < len(data) {
		data = data[:iphdr.totalLength]
	}
	if iphdr.headerLength >= len(data) || len(data)-iphdr.headerLength < TcpHeaderLength {
		e.stats.ShortDrops.Inc()
		if e.cfg.Debug {
			log.Printf("Input: short packet (%d bytes) discarded\n", len(data))
		}
		return DispNone
	}
	tcpBytes := data[iphdr.headerLength:]

	tcphdr, err := parseTCPHeader(tcpBytes)
	if err != nil {
		e.stats.ShortDrops.Inc()
		if e.cfg.Debug {
			log.Printf("Input: dropping packet: %v\n", err)
		}
		return DispNone
	}
	in.tcphdr = tcphdr
	in.seqno = tcphdr.SeqNo
	in.ackno = tcphdr.AckNo
	in.flags = tcphdr.Flags

	payload := tcpBytes[tcphdr.DataOffset:]
	in.tcplen = uint32(len(payload))
	if in.flags&(FINFlag|SYNFlag) != 0 {
		in.tcplen++
	}

	if pcb == nil {
		// no connection for this segment, reset the sender
		if in.flags&RSTFlag == 0 {
			e.reset(&in, in.ackno, in.seqno+in.tcplen)
		}
		return DispNone
	}

	switch {
	case pcb.state.inActiveState():
		in.inseg = Segment{
			buf:      NewExternalBuffer(payload),
			hdr:      tcphdr,
			seqno:    in.seqno,
			len:      uint32(len(payload)),
			tcpFlags: in.flags,
		}
		return e.activeInput(pcb, &in)
	case pcb.state == Listen:
		e.listenInput(pcb, &in)
		return DispNone
	case pcb.state == TimeWait:
		e.timewaitInput(pcb, &in)
		return DispNone
	default:
		if e.cfg.Debug {
			log.Printf("Input: segment for connection in state %v dropped\n", pcb.state)
		}
		return DispNone
	}
}

// activeInput runs the state machine for a synchronized (or handshaking)
// connection and sequences the upcalls afterwards. Past any upcall that
// returns ResultAborted the PCB must not be touched.
func (e *Engine) activeInput(pcb *PCB, in *inputData) Disposition {
	aborted := e.process(pcb, in)
	if aborted {
		return DispAborted
	}

	if in.recv.reset {
		// tell the application the connection is dead before the caller
		// deallocates the PCB
		e.stats.ResetsIn.Inc()
		e.events.Error(pcb, ErrConnReset)
		return DispRemoveReset
	}
	if in.recv.closed {
		return DispRemoveClosed
	}

	if pcb.acked > 0 {
		if e.events.Sent(pcb, pcb.acked) == ResultAborted {
			return DispAborted
		}
	}

	if in.recvData != nil {
		if pcb.flags.rxClosed {
			// data arrived after a receive shutdown, abort so the peer
			// learns not everything was consumed
			in.recvData.Free()
			e.factory.Abort(pcb)
			return DispAborted
		}
		if in.flags&PSHFlag != 0 {
			in.recvData.flags |= PSHFlag
		}
		result := e.events.Received(pcb, in.recvData)
		if result == ResultAborted {
			return DispAborted
		}
		if result != ResultOK {
			// receiver can't take it now, roll the window credit back and
			// drop; the peer will retransmit
			pcb.rcvWnd += uint32(in.recvData.TotLen)
			in.recvData.Free()
		}
		in.recvData = nil
	}

	if in.recv.gotFin {
		// the application never calls back to credit the FIN pseudo-byte
		if pcb.rcvWnd != pcb.rcvWndMax {
			pcb.rcvWnd++
		}
		if e.events.RemoteClosed(pcb) == ResultAborted {
			return DispAborted
		}
	}

	e.tx.Output(pcb)
	return DispNone
}

package lib

import "net"

// CallbackResult is what an upcall tells the engine about the connection it
// was handed.
type CallbackResult int

const (
	// ResultOK means the callback consumed the event.
	ResultOK CallbackResult = iota
	// ResultError means the callback could not take the event; for Received
	// this keeps the data unconsumed and the engine re-credits the receive
	// window for it.
	ResultError
	// ResultAborted means the callback tore the connection down. The engine
	// must not touch the PCB again and unwinds immediately.
	ResultAborted
)

// ConnectionEvents receives socket-level notifications. Every method may
// return ResultAborted, after which the engine stops referencing the PCB.
type ConnectionEvents interface {
	// Connected fires when an active open reaches ESTABLISHED.
	Connected(pcb *PCB) CallbackResult

	// Accepted fires when a passive open reaches ESTABLISHED. ResultError
	// here makes the engine abort the embryonic connection.
	Accepted(pcb *PCB) CallbackResult

	// Sent reports bytes newly acknowledged by the peer.
	Sent(pcb *PCB, bytes uint16) CallbackResult

	// Received hands over in-sequence data. Ownership of the chain moves to
	// the callback on ResultOK; on ResultError the engine keeps it and
	// restores the window credit. Fragments may alias the packet slice given
	// to Engine.Input, so the bytes are only valid for the duration of the
	// upcall; copy anything kept longer.
	Received(pcb *PCB, data *Buffer) CallbackResult

	// RemoteClosed signals EOF after the peer's FIN is sequenced.
	RemoteClosed(pcb *PCB) CallbackResult

	// Error reports an inbound RST or a local abort. The PCB is already dead.
	Error(pcb *PCB, err error)
}

// Transmitter is the engine's handle on the transmit path. The engine decides
// what must go out; the transmitter decides how and when.
type Transmitter interface {
	// Output flushes whatever the PCB owes the peer (pending ACK, window
	// update, queued data within the windows).
	Output(pcb *PCB)

	// SendEmptyAck emits an immediate ACK-only segment.
	SendEmptyAck(pcb *PCB)

	// SendReset emits a RST with the given sequence numbers and addresses.
	SendReset(seqno, ackno uint32, localIP, remoteIP net.IP, localPort, remotePort uint16)

	// Retransmit replays the head of the retransmission queue (SYN|ACK replay
	// for SYN_RCVD, data otherwise).
	Retransmit(pcb *PCB)

	// FastRetransmit resends the presumed-lost segment without waiting for
	// the retransmission timer.
	FastRetransmit(pcb *PCB)

	// EnqueueFlags queues an empty segment carrying the given flags, SYN|ACK
	// for passive opens. Fails when no segment can be allocated.
	EnqueueFlags(pcb *PCB, flags uint8) error
}

// ConnectionFactory owns PCB lifetime around passive opens and aborts. The
// engine never frees a PCB itself.
type ConnectionFactory interface {
	// Clone derives an embryonic PCB from a listener for an inbound SYN.
	// Returns nil when resources are exhausted (the SYN is then dropped).
	Clone(listener *PCB) *PCB

	// Register inserts the embryonic PCB into the active-connection table.
	Register(listener *PCB, pcb *PCB) error

	// Accepted admits an embryonic PCB to the listener's backlog once its
	// SYN|ACK is on the way.
	Accepted(listener *PCB, pcb *PCB)

	// Abandon discards an embryonic PCB that never completed the handshake.
	Abandon(pcb *PCB)

	// Abort tears down an active PCB, RST included.
	Abort(pcb *PCB)
}

// Clock supplies the slow-timer tick count used for RTT measurement and PCB
// activity stamps.
type Clock interface {
	Ticks() uint32
}

// Disposition tells the caller of Engine.Input what to do with the PCB once
// the call returns. The engine never removes or frees a PCB itself.
type Disposition int

const (
	// DispNone: connection lives on.
	DispNone Disposition = iota
	// DispRemoveReset: the peer reset the connection, remove and free it.
	DispRemoveReset
	// DispRemoveClosed: the close handshake completed, remove and free it.
	DispRemoveClosed
	// DispAborted: an upcall aborted the connection, the PCB is already gone.
	DispAborted
)

package lib

import "math"

// AckKind classifies an inbound ACK for the congestion strategy.
type AckKind int

const (
	AckNew AckKind = iota
	AckDuplicate
)

// CongestionControl is the pluggable congestion strategy. The engine calls it
// at the RFC 5681 decision points and otherwise only reads cwnd/ssthresh.
type CongestionControl interface {
	// Init seeds cwnd and ssthresh when the connection is established.
	Init(pcb *PCB)

	// AckReceived updates cwnd for a new or duplicate ACK.
	AckReceived(pcb *PCB, kind AckKind)

	// PostRecovery restores cwnd after fast recovery ends.
	PostRecovery(pcb *PCB)
}

// NoneControl disables congestion control by pinning cwnd wide open. Used
// when the peer stack or the deployment handles pacing elsewhere.
type NoneControl struct{}

func (NoneControl) Init(pcb *PCB) {
	pcb.cwnd = math.MaxUint32
	pcb.ssthresh = math.MaxUint32
}

func (NoneControl) AckReceived(pcb *PCB, kind AckKind) {}

func (NoneControl) PostRecovery(pcb *PCB) {}

// RenoControl is classic RFC 5681 slow start and congestion avoidance.
type RenoControl struct{}

func (RenoControl) Init(pcb *PCB) {
	pcb.cwnd = uint32(pcb.mss)
	pcb.ssthresh = uint32(pcb.mss) * 10
}

func (RenoControl) AckReceived(pcb *PCB, kind AckKind) {
	mss := uint32(pcb.mss)
	switch kind {
	case AckNew:
		if pcb.cwnd < pcb.ssthresh {
			// slow start, exponential growth
			if pcb.cwnd+mss > pcb.cwnd {
				pcb.cwnd += mss
			}
		} else {
			// congestion avoidance, roughly one mss per RTT
			inc := mss * mss / pcb.cwnd
			if inc == 0 {
				inc = 1
			}
			if pcb.cwnd+inc > pcb.cwnd {
				pcb.cwnd += inc
			}
		}
	case AckDuplicate:
		// past the fast-retransmit threshold each dup ack signals one more
		// segment has left the network
		if pcb.cwnd+mss > pcb.cwnd {
			pcb.cwnd += mss
		}
	}
}

func (RenoControl) PostRecovery(pcb *PCB) {
	pcb.cwnd = pcb.ssthresh
}

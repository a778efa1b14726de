package lib

import (
	"github.com/Clouded-Sabre/tcprx/config"
	"github.com/prometheus/client_golang/prometheus"
)

// Engine is the receive-side protocol machine. It owns no goroutines and no
// sockets; the caller feeds it one segment at a time together with the PCB
// the connection-lookup layer resolved, and acts on the returned Disposition.
type Engine struct {
	cfg     *config.Config
	tx      Transmitter
	events  ConnectionEvents
	factory ConnectionFactory
	clock   Clock
	stats   *Stats
}

// NewEngine wires the engine to its collaborators. reg may be nil to skip
// metrics registration.
func NewEngine(cfg *config.Config, tx Transmitter, events ConnectionEvents,
	factory ConnectionFactory, clock Clock, reg prometheus.Registerer) *Engine {
	if Pool == nil {
		InitPool(cfg.PayloadPoolSize, cfg.PayloadChunkSize, cfg.PoolDebug)
	}
	return &Engine{
		cfg:     cfg,
		tx:      tx,
		events:  events,
		factory: factory,
		clock:   clock,
		stats:   NewStats(reg),
	}
}

// Stats exposes the engine counters, for scraping or test inspection.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// ack schedules a delayed ACK. A second call before the ACK went out
// escalates to an immediate one.
func (e *Engine) ack(pcb *PCB) {
	if pcb.flags.ackDelay {
		pcb.flags.ackDelay = false
		pcb.flags.ackNow = true
	} else {
		pcb.flags.ackDelay = true
	}
}

// ackNow forces an ACK onto the next output.
func (e *Engine) ackNow(pcb *PCB) {
	pcb.flags.ackNow = true
}

// reset asks the transmitter for a RST aimed back at the segment's sender.
func (e *Engine) reset(in *inputData, seqno, ackno uint32) {
	e.tx.SendReset(seqno, ackno, in.iphdr.dst, in.iphdr.src,
		in.tcphdr.DstPort, in.tcphdr.SrcPort)
	e.stats.ResetsOut.Inc()
}

// quickAck reports whether the just-received data should be acknowledged
// immediately instead of riding the delayed-ACK timer.
func (e *Engine) quickAck(pcb *PCB, in *inputData) bool {
	if pcb.quickAckThreshold == 0 {
		return false
	}
	return in.tcplen <= pcb.quickAckThreshold
}

// sendMSS is the provisional MSS we offer before the peer's option is parsed.
func (e *Engine) sendMSS(pcb *PCB) uint16 {
	mss := e.cfg.PreferredMSS
	if pcb.isIPv6 && mss > e.cfg.PreferredMSS-(IPv6HeaderLength-20) {
		// IPv6 header is 20 bytes longer than a bare IPv4 header
		mss = e.cfg.PreferredMSS - (IPv6HeaderLength - 20)
	}
	return mss
}

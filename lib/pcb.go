package lib

import (
	"net"

	"github.com/Clouded-Sabre/tcprx/config"
)

// pcbFlags are the per-connection mode and pending-action bits, kept as named
// booleans rather than a packed field.
type pcbFlags struct {
	ackDelay       bool // an ACK is owed but may ride on the next output
	ackNow         bool // an ACK must go out with the next output
	inFastRecovery bool // between fast retransmit and the recovering ACK
	timestamp      bool // RFC 7323 timestamps negotiated
	windowScale    bool // RFC 7323 window scaling negotiated
	rxClosed       bool // local receive side shut down, inbound data refused
}

// PCB is the per-connection protocol control block. Single-threaded: the
// caller serializes all access to one PCB, including Engine.Input.
type PCB struct {
	state State

	localIP    net.IP
	remoteIP   net.IP
	localPort  uint16
	remotePort uint16
	isIPv6     bool

	// send side
	sndNxt      uint32 // next sequence number to send
	lastAck     uint32 // highest acknowledged sequence number (snd_una)
	sndWl1      uint32 // seqno of the segment of the last window update
	sndWl2      uint32 // ackno of the segment of the last window update
	sndWnd      uint32 // peer receive window, descaled to bytes
	sndWndMax   uint32 // largest peer window seen, for bursts after idle
	sndBuf      uint32 // available send-buffer space in bytes
	sndQueueLen uint16 // buffer fragments on unsent plus unacked
	acked       uint16 // bytes acknowledged by the segment being processed

	// receive side
	rcvNxt          uint32 // next expected sequence number
	rcvWnd          uint32 // bytes we can still accept
	rcvWndMax       uint32 // configured receive window ceiling
	rcvAnnWnd       uint32 // window to announce in the next segment out
	rcvAnnRightEdge uint32 // highest rcv_nxt+rcv_ann_wnd ever announced

	// congestion
	cwnd     uint32
	ssthresh uint32
	dupAcks  uint8
	cc       CongestionControl

	// negotiated parameters
	mss           uint16
	advertisedMSS uint16 // what we offered in our SYN/SYN|ACK
	sndScale      uint8  // shift applied to inbound window values
	rcvScale      uint8  // shift the peer applies to our announcements

	// VJ RTT estimation, units of slow-timer ticks
	sa     int16  // scaled smoothed RTT (sa = srtt * 8)
	sv     int16  // scaled RTT variance (sv = rttvar * 4)
	rto    int16  // current retransmission timeout in ticks
	rttest uint32 // tick count when the running measurement started, 0 if none
	rtseq  uint32 // seqno being timed
	nrtx   uint8  // retransmissions of the head segment

	// timers
	tmr            uint32 // tick of last inbound activity
	rtime          int16  // retransmission timer, -1 when stopped
	persistBackoff int8   // persist timer backoff index, 0 when disarmed
	persistCnt     uint8
	keepCntSent    uint8 // keepalive probes sent since last activity

	// RFC 7323 timestamps
	tsRecent      uint32 // peer's most recent in-window timestamp value
	tsLastAckSent uint32 // rcv_nxt of the last ACK we sent, for ts update check

	flags pcbFlags

	unacked *Segment // sent but not yet fully acknowledged, seqno order
	unsent  *Segment // queued but not yet sent
	ooseq   *Segment // received above rcv_nxt, seqno order, non-overlapping

	// OnTimeWaitReuse decides whether a TIME_WAIT connection may be recycled
	// for a fresh inbound SYN (RFC 6191). Nil means never.
	OnTimeWaitReuse func(pcb *PCB) error

	quickAckThreshold uint32
	enableTimestamps  bool
	enableWindowScale bool
	requestedScale    uint8
}

// NewPCB builds a control block in CLOSED state with the configured windows
// and the default RTO.
func NewPCB(cfg *config.Config) *PCB {
	pcb := &PCB{
		state:             Closed,
		mss:               cfg.PreferredMSS,
		advertisedMSS:     cfg.PreferredMSS,
		rcvWnd:            cfg.ReceiveWindow,
		rcvWndMax:         cfg.ReceiveWindow,
		rcvAnnWnd:         cfg.ReceiveWindow,
		sndBuf:            cfg.ReceiveWindow,
		rto:               6, // 3s at a 500ms slow timer until measured
		rtime:             -1,
		quickAckThreshold: cfg.QuickAckThreshold,
		enableTimestamps:  cfg.EnableTimestamps,
		enableWindowScale: cfg.EnableWindowScale,
		requestedScale:    cfg.WindowShift,
		cc:                RenoControl{},
	}
	return pcb
}

// NewListenPCB builds a listener bound to the given address.
func NewListenPCB(cfg *config.Config, localIP net.IP, localPort uint16) *PCB {
	pcb := NewPCB(cfg)
	pcb.state = Listen
	pcb.localIP = localIP
	pcb.localPort = localPort
	return pcb
}

// SetCongestionControl replaces the congestion strategy. Call before the
// connection is established.
func (pcb *PCB) SetCongestionControl(cc CongestionControl) {
	pcb.cc = cc
}

// State reports the connection state.
func (pcb *PCB) State() State {
	return pcb.state
}

// scaledSndWnd descales an inbound window field into bytes.
func (pcb *PCB) scaledSndWnd(wnd uint16) uint32 {
	return uint32(wnd) << pcb.sndScale
}

// updateRcvAnnWnd recomputes the window to announce so the advertised right
// edge never moves left.
func (pcb *PCB) updateRcvAnnWnd() {
	newRightEdge := pcb.rcvNxt + pcb.rcvWnd
	if seqGEQ(newRightEdge, pcb.rcvAnnRightEdge) {
		pcb.rcvAnnWnd = pcb.rcvWnd
	} else {
		if seqGT(pcb.rcvNxt, pcb.rcvAnnRightEdge) {
			// window shrunk below an edge we already promised; announce
			// zero rather than renege
			pcb.rcvAnnWnd = 0
		} else {
			pcb.rcvAnnWnd = pcb.rcvAnnRightEdge - pcb.rcvNxt
		}
	}
}

// recycle wipes the per-incarnation state so a TIME_WAIT block can serve a
// fresh connection. Identity and configuration survive.
func (pcb *PCB) recycle() {
	pcb.purge()
	pcb.flags = pcbFlags{}
	pcb.dupAcks = 0
	pcb.nrtx = 0
	pcb.acked = 0
	pcb.rtime = -1
	pcb.rttest = 0
	pcb.sa = 0
	pcb.sv = 0
	pcb.rto = 6
	pcb.persistBackoff = 0
	pcb.persistCnt = 0
	pcb.keepCntSent = 0
	pcb.tsRecent = 0
	pcb.tsLastAckSent = 0
	pcb.sndScale = 0
	pcb.rcvScale = 0
	pcb.cwnd = 0
	pcb.ssthresh = 0
}

// purge drops all queued segments. Called when the connection retires its
// retransmission state or dies.
func (pcb *PCB) purge() {
	freed := segsFree(pcb.unsent)
	freed += segsFree(pcb.unacked)
	segsFree(pcb.ooseq)
	pcb.unsent = nil
	pcb.unacked = nil
	pcb.ooseq = nil
	if uint16(freed) > pcb.sndQueueLen {
		pcb.sndQueueLen = 0
	} else {
		pcb.sndQueueLen -= uint16(freed)
	}
}

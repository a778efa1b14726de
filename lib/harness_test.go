package lib

import (
	"net"

	"github.com/Clouded-Sabre/tcprx/config"
)

// Recording fakes for the engine's collaborators.

type fakeTransmitter struct {
	outputs        int
	emptyAcks      int
	resets         []resetCall
	retransmits    int
	fastRexmits    int
	enqueuedFlags  []uint8
	enqueueFailure error
}

type resetCall struct {
	seqno, ackno          uint32
	localPort, remotePort uint16
	localIP, remoteIP     net.IP
}

func (f *fakeTransmitter) Output(pcb *PCB)       { f.outputs++ }
func (f *fakeTransmitter) SendEmptyAck(pcb *PCB) { f.emptyAcks++ }
func (f *fakeTransmitter) SendReset(seqno, ackno uint32, localIP, remoteIP net.IP, localPort, remotePort uint16) {
	f.resets = append(f.resets, resetCall{seqno, ackno, localPort, remotePort, localIP, remoteIP})
}
func (f *fakeTransmitter) Retransmit(pcb *PCB)     { f.retransmits++ }
func (f *fakeTransmitter) FastRetransmit(pcb *PCB) { f.fastRexmits++ }
func (f *fakeTransmitter) EnqueueFlags(pcb *PCB, flags uint8) error {
	if f.enqueueFailure != nil {
		return f.enqueueFailure
	}
	f.enqueuedFlags = append(f.enqueuedFlags, flags)
	return nil
}

type fakeEvents struct {
	connected    int
	accepted     int
	sentBytes    []uint16
	received     []*Buffer
	remoteClosed int
	errors       []error

	connectedResult CallbackResult
	acceptedResult  CallbackResult
	sentResult      CallbackResult
	receivedResult  CallbackResult
	closedResult    CallbackResult
}

func (f *fakeEvents) Connected(pcb *PCB) CallbackResult {
	f.connected++
	return f.connectedResult
}
func (f *fakeEvents) Accepted(pcb *PCB) CallbackResult {
	f.accepted++
	return f.acceptedResult
}
func (f *fakeEvents) Sent(pcb *PCB, bytes uint16) CallbackResult {
	f.sentBytes = append(f.sentBytes, bytes)
	return f.sentResult
}
func (f *fakeEvents) Received(pcb *PCB, data *Buffer) CallbackResult {
	f.received = append(f.received, data)
	return f.receivedResult
}
func (f *fakeEvents) RemoteClosed(pcb *PCB) CallbackResult {
	f.remoteClosed++
	return f.closedResult
}
func (f *fakeEvents) Error(pcb *PCB, err error) {
	f.errors = append(f.errors, err)
}

type fakeFactory struct {
	cfg        *config.Config
	clones     int
	cloneNil   bool
	registered []*PCB
	regErr     error
	acceptedBy []*PCB
	abandoned  []*PCB
	aborted    []*PCB
}

func (f *fakeFactory) Clone(listener *PCB) *PCB {
	f.clones++
	if f.cloneNil {
		return nil
	}
	return NewPCB(f.cfg)
}
func (f *fakeFactory) Register(listener *PCB, pcb *PCB) error {
	if f.regErr != nil {
		return f.regErr
	}
	f.registered = append(f.registered, pcb)
	return nil
}
func (f *fakeFactory) Accepted(listener *PCB, pcb *PCB) {
	f.acceptedBy = append(f.acceptedBy, pcb)
}
func (f *fakeFactory) Abandon(pcb *PCB) { f.abandoned = append(f.abandoned, pcb) }
func (f *fakeFactory) Abort(pcb *PCB)   { f.aborted = append(f.aborted, pcb) }

type fakeClock struct {
	ticks uint32
}

func (f *fakeClock) Ticks() uint32 { return f.ticks }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.PayloadPoolSize = 64
	cfg.PayloadChunkSize = 4096
	cfg.ReceiveWindow = 8192
	cfg.PreferredMSS = 1460
	return cfg
}

type testHarness struct {
	engine  *Engine
	tx      *fakeTransmitter
	events  *fakeEvents
	factory *fakeFactory
	clock   *fakeClock
	cfg     *config.Config
}

func newHarness() *testHarness {
	cfg := testConfig()
	tx := &fakeTransmitter{}
	events := &fakeEvents{}
	factory := &fakeFactory{cfg: cfg}
	clock := &fakeClock{ticks: 100}
	engine := NewEngine(cfg, tx, events, factory, clock, nil)
	return &testHarness{
		engine:  engine,
		tx:      tx,
		events:  events,
		factory: factory,
		clock:   clock,
		cfg:     cfg,
	}
}

// establishedPCB builds a PCB in ESTABLISHED with sane windows for the
// receive and process tests.
func (h *testHarness) establishedPCB() *PCB {
	pcb := NewPCB(h.cfg)
	pcb.state = Established
	pcb.localIP = net.ParseIP("10.0.0.1").To4()
	pcb.remoteIP = net.ParseIP("10.0.0.2").To4()
	pcb.localPort = 80
	pcb.remotePort = 45000
	pcb.rcvNxt = 1000
	pcb.rcvWnd = h.cfg.ReceiveWindow
	pcb.rcvWndMax = h.cfg.ReceiveWindow
	pcb.rcvAnnRightEdge = pcb.rcvNxt + pcb.rcvWnd
	pcb.sndNxt = 5000
	pcb.lastAck = 5000
	pcb.sndWl1 = 999
	pcb.sndWl2 = 5000
	pcb.sndWnd = 8192
	pcb.sndWndMax = 8192
	pcb.cc.Init(pcb)
	return pcb
}

// segment builds the per-call context for direct handler tests, bypassing
// the wire parse.
func segIn(seqno, ackno uint32, flags uint8, payload []byte) *inputData {
	hdr := &TCPHeader{
		SrcPort:    45000,
		DstPort:    80,
		SeqNo:      seqno,
		AckNo:      ackno,
		DataOffset: TcpHeaderLength,
		Flags:      flags,
		Wnd:        8192,
	}
	in := &inputData{
		iphdr: &parsedIPHeader{
			src: net.ParseIP("10.0.0.2").To4(),
			dst: net.ParseIP("10.0.0.1").To4(),
		},
		tcphdr: hdr,
		seqno:  seqno,
		ackno:  ackno,
		flags:  flags,
		tcplen: uint32(len(payload)),
	}
	if flags&(SYNFlag|FINFlag) != 0 {
		in.tcplen++
	}
	in.inseg = Segment{
		buf:      NewExternalBuffer(payload),
		hdr:      hdr,
		seqno:    seqno,
		len:      uint32(len(payload)),
		tcpFlags: flags,
	}
	return in
}

func bytesOf(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}

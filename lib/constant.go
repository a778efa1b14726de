package lib

import "github.com/pkg/errors"

// State is the TCP connection state of a PCB.
type State int

const (
	Closed State = iota
	Listen
	SynSent
	SynRcvd
	Established
	FinWait1
	FinWait2
	CloseWait
	Closing
	LastAck
	TimeWait
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Listen:
		return "LISTEN"
	case SynSent:
		return "SYN_SENT"
	case SynRcvd:
		return "SYN_RCVD"
	case Established:
		return "ESTABLISHED"
	case FinWait1:
		return "FIN_WAIT_1"
	case FinWait2:
		return "FIN_WAIT_2"
	case CloseWait:
		return "CLOSE_WAIT"
	case Closing:
		return "CLOSING"
	case LastAck:
		return "LAST_ACK"
	case TimeWait:
		return "TIME_WAIT"
	}
	return "UNKNOWN"
}

// inActiveState reports whether segments for this PCB go through the full
// state machine. LISTEN and TIME_WAIT have their own input handlers.
func (s State) inActiveState() bool {
	return s >= SynSent && s <= LastAck
}

// Flag constants, RFC 793 bit layout.
const (
	FINFlag uint8 = 1 << 0
	SYNFlag uint8 = 1 << 1
	RSTFlag uint8 = 1 << 2
	PSHFlag uint8 = 1 << 3
	ACKFlag uint8 = 1 << 4
	URGFlag uint8 = 1 << 5
)

// TCP option kinds understood by the option parser.
const (
	optEndOfOptions = 0
	optNop          = 1
	optMSS          = 2
	optWindowScale  = 3
	optTimestamp    = 8

	optLenMSS         = 4
	optLenWindowScale = 3
	optLenTimestamp   = 10
)

const (
	TcpHeaderLength   = 20 // options not included
	TcpOptionsMaxLen  = 40
	IPv6HeaderLength  = 40
	maxWindowShift    = 14 // RFC 7323 limit on the window scale shift
	fastRexmitDupAcks = 3
)

var (
	// ErrPoolExhausted is returned when no payload chunk is available. The
	// dropped data is recoverable through peer retransmission.
	ErrPoolExhausted = errors.New("payload pool exhausted")

	// ErrBufferTooShort is returned when a trim or strip operation asks for
	// more bytes than the buffer holds.
	ErrBufferTooShort = errors.New("buffer too short")

	// ErrNotTCP is returned when the IP header does not carry a TCP payload.
	ErrNotTCP = errors.New("not a TCP segment")

	// ErrEnqueue is returned when the transmit collaborator cannot queue a
	// control segment.
	ErrEnqueue = errors.New("cannot enqueue segment")
)

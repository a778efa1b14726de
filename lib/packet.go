package lib

import (
	"encoding/binary"
	"net"

	"github.com/google/netstack/tcpip/header"
)

// TCPHeader holds the parsed fields of an inbound TCP header. Options is a
// view into the raw header bytes, valid only for the duration of one
// Engine.Input call.
type TCPHeader struct {
	SrcPort       uint16
	DstPort       uint16
	SeqNo         uint32
	AckNo         uint32
	DataOffset    int // header length in bytes, options included
	Flags         uint8
	Wnd           uint16
	Checksum      uint16
	UrgentPointer uint16
	Options       []byte
}

// parseTCPHeader decodes the fixed header and the options view from b. b must
// hold at least the bytes DataOffset declares.
func parseTCPHeader(b []byte) (*TCPHeader, error) {
	if len(b) < header.TCPMinimumSize {
		return nil, ErrBufferTooShort
	}
	td := header.TCP(b)
	dataOffset := int(td.DataOffset())
	if dataOffset < header.TCPMinimumSize || dataOffset > len(b) {
		return nil, ErrBufferTooShort
	}
	return &TCPHeader{
		SrcPort:       td.SourcePort(),
		DstPort:       td.DestinationPort(),
		SeqNo:         td.SequenceNumber(),
		AckNo:         td.AckNumber(),
		DataOffset:    dataOffset,
		Flags:         td.Flags(),
		Wnd:           td.WindowSize(),
		Checksum:      td.Checksum(),
		UrgentPointer: binary.BigEndian.Uint16(b[18:20]),
		Options:       b[header.TCPMinimumSize:dataOffset],
	}, nil
}

// parsedIPHeader carries the fields of the outer IP header the engine needs.
type parsedIPHeader struct {
	isIPv6       bool
	headerLength int
	totalLength  int
	src          net.IP
	dst          net.IP
	ttl          uint8
}

// parseIPHeader decodes an IPv4 or IPv6 header from b, deciding by the
// version nibble. For IPv6 only the fixed 40-byte header is supported;
// segments carrying extension headers are rejected.
func parseIPHeader(b []byte) (*parsedIPHeader, error) {
	if len(b) < 1 {
		return nil, ErrBufferTooShort
	}
	version := b[0] >> 4
	switch version {
	case 4:
		if len(b) < header.IPv4MinimumSize {
			return nil, ErrBufferTooShort
		}
		ih := header.IPv4(b)
		hdrLen := int(ih.HeaderLength())
		if hdrLen < header.IPv4MinimumSize || hdrLen > len(b) {
			return nil, ErrBufferTooShort
		}
		if ih.Protocol() != uint8(header.TCPProtocolNumber) {
			return nil, ErrNotTCP
		}
		return &parsedIPHeader{
			headerLength: hdrLen,
			totalLength:  int(ih.TotalLength()),
			src:          net.IP(ih.SourceAddress()),
			dst:          net.IP(ih.DestinationAddress()),
			ttl:          ih.TTL(),
		}, nil
	case 6:
		if len(b) < IPv6HeaderLength {
			return nil, ErrBufferTooShort
		}
		ih := header.IPv6(b)
		if ih.NextHeader() != uint8(header.TCPProtocolNumber) {
			return nil, ErrNotTCP
		}
		return &parsedIPHeader{
			isIPv6:       true,
			headerLength: IPv6HeaderLength,
			totalLength:  IPv6HeaderLength + int(ih.PayloadLength()),
			src:          net.IP(ih.SourceAddress()),
			dst:          net.IP(ih.DestinationAddress()),
			ttl:          ih.HopLimit(),
		}, nil
	}
	return nil, ErrNotTCP
}

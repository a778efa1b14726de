package lib

import (
	"encoding/binary"
	"log"
)

// parseOptions walks the option bytes of the current segment and applies the
// MSS, window-scale and timestamp options to the PCB. Unknown options are
// skipped by their length field; a zero length aborts the remaining parse.
func (e *Engine) parseOptions(pcb *PCB, in *inputData) {
	opts := in.tcphdr.Options
	maxC := len(opts)
	for c := 0; c < maxC; {
		switch opts[c] {
		case optEndOfOptions:
			return
		case optNop:
			c++
		case optMSS:
			if c+1 >= maxC || opts[c+1] != optLenMSS || c+optLenMSS > maxC {
				if e.cfg.Debug {
					log.Println("parseOptions: MSS option with bad length")
				}
				return
			}
			if in.flags&SYNFlag != 0 {
				mss := binary.BigEndian.Uint16(opts[c+2 : c+4])
				// clamp to what we advertised and protect the segmentation
				// arithmetic from a zero MSS
				if mss > pcb.advertisedMSS || mss == 0 {
					mss = pcb.advertisedMSS
				}
				pcb.mss = mss
			}
			c += optLenMSS
		case optWindowScale:
			if c+1 >= maxC || opts[c+1] != optLenWindowScale || c+optLenWindowScale > maxC {
				if e.cfg.Debug {
					log.Println("parseOptions: window scale option with bad length")
				}
				return
			}
			// only negotiated on the first SYN, a retransmitted SYN must not
			// flip the scale mid-handshake
			if pcb.enableWindowScale && in.flags&SYNFlag != 0 && !pcb.flags.windowScale {
				shift := opts[c+2]
				if shift > maxWindowShift {
					shift = maxWindowShift
				}
				pcb.sndScale = shift
				pcb.rcvScale = pcb.requestedScale
				pcb.flags.windowScale = true
			}
			c += optLenWindowScale
		case optTimestamp:
			if c+1 >= maxC || opts[c+1] != optLenTimestamp || c+optLenTimestamp > maxC {
				if e.cfg.Debug {
					log.Println("parseOptions: timestamp option with bad length")
				}
				return
			}
			tsval := binary.BigEndian.Uint32(opts[c+2 : c+6])
			if in.flags&SYNFlag != 0 {
				if pcb.enableTimestamps {
					pcb.tsRecent = tsval
					pcb.flags.timestamp = true
				}
			} else if seqBetween(pcb.tsLastAckSent, in.seqno, in.seqno+in.tcplen) {
				// RFC 7323 anti-replay: only take the value when the segment
				// covers the sequence number of our last ACK
				pcb.tsRecent = tsval
			}
			c += optLenTimestamp
		default:
			if c+1 >= maxC || opts[c+1] == 0 {
				// malformed, stop processing options
				return
			}
			c += int(opts[c+1])
		}
	}
}

// parseTimestampOption scans opts for a timestamp option and returns its
// TSval. Used by the TIME_WAIT handler before any PCB state is touched.
func parseTimestampOption(opts []byte) (uint32, bool) {
	maxC := len(opts)
	for c := 0; c < maxC; {
		switch opts[c] {
		case optTimestamp:
			if c+1 >= maxC || opts[c+1] != optLenTimestamp || c+optLenTimestamp > maxC {
				return 0, false
			}
			return binary.BigEndian.Uint32(opts[c+2 : c+6]), true
		case optEndOfOptions:
			return 0, false
		case optNop:
			c++
		default:
			if c+1 >= maxC || opts[c+1] == 0 {
				return 0, false
			}
			c += int(opts[c+1])
		}
	}
	return 0, false
}

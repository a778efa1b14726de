package lib

import "github.com/prometheus/client_golang/prometheus"

// Stats counts protocol events. Counters only; the engine stays allocation
// free on the hot path.
type Stats struct {
	SegmentsIn      prometheus.Counter
	ShortDrops      prometheus.Counter
	ResetsIn        prometheus.Counter
	ResetsOut       prometheus.Counter
	DupAcks         prometheus.Counter
	FastRetransmits prometheus.Counter
	OoseqQueued     prometheus.Counter
	OoseqDropped    prometheus.Counter
	TimeWaitReuses  prometheus.Counter
}

// NewStats builds the counter set and registers it when reg is non-nil.
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{
		SegmentsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_segments_in_total",
			Help: "Inbound TCP segments handed to the engine.",
		}),
		ShortDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_short_drops_total",
			Help: "Segments discarded for truncated IP or TCP headers.",
		}),
		ResetsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_resets_in_total",
			Help: "Acceptable inbound RST segments.",
		}),
		ResetsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_resets_out_total",
			Help: "RST segments the engine asked the transmitter to send.",
		}),
		DupAcks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_duplicate_acks_total",
			Help: "Inbound ACKs qualified as duplicates.",
		}),
		FastRetransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_fast_retransmits_total",
			Help: "Fast retransmits triggered by the third duplicate ACK.",
		}),
		OoseqQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_ooseq_queued_total",
			Help: "Segments admitted to the out-of-order queue.",
		}),
		OoseqDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_ooseq_dropped_total",
			Help: "Out-of-order segments dropped as duplicates or for lack of pool chunks.",
		}),
		TimeWaitReuses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcprx_time_wait_reuses_total",
			Help: "TIME_WAIT control blocks recycled for a fresh SYN (RFC 6191).",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			s.SegmentsIn, s.ShortDrops, s.ResetsIn, s.ResetsOut,
			s.DupAcks, s.FastRetransmits,
			s.OoseqQueued, s.OoseqDropped, s.TimeWaitReuses,
		)
	}
	return s
}

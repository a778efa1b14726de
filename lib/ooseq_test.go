package lib

import "testing"

func queueSeqnos(pcb *PCB) []uint32 {
	var out []uint32
	for seg := pcb.ooseq; seg != nil; seg = seg.next {
		out = append(out, seg.seqno)
	}
	return out
}

func queueSpans(pcb *PCB) [][2]uint32 {
	var out [][2]uint32
	for seg := pcb.ooseq; seg != nil; seg = seg.next {
		out = append(out, [2]uint32{seg.seqno, seg.seqno + seg.len})
	}
	return out
}

// checkOrdered fails the test when the queue is unordered or overlapping.
func checkOrdered(t *testing.T, pcb *PCB) {
	t.Helper()
	for seg := pcb.ooseq; seg != nil && seg.next != nil; seg = seg.next {
		if !seqLT(seg.seqno, seg.next.seqno) {
			t.Errorf("queue out of order: %d before %d", seg.seqno, seg.next.seqno)
		}
		if seqGT(seg.seqno+seg.len, seg.next.seqno) {
			t.Errorf("queue overlap: [%d,%d) against %d", seg.seqno, seg.seqno+seg.len, seg.next.seqno)
		}
	}
}

func TestQueueOutOfOrderOrdering(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()

	// arrive out of order: 1300, 1100, 1200
	h.engine.queueOutOfOrder(pcb, segIn(1300, 0, ACKFlag, bytesOf(100, 'c')))
	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(100, 'a')))
	h.engine.queueOutOfOrder(pcb, segIn(1200, 0, ACKFlag, bytesOf(100, 'b')))

	got := queueSeqnos(pcb)
	want := []uint32{1100, 1200, 1300}
	if len(got) != len(want) {
		t.Fatalf("queue length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("queue[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	checkOrdered(t, pcb)
}

func TestQueueOutOfOrderDuplicateStartKeepsLonger(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()

	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(50, 'a')))
	// same start, more data: replaces the shorter one
	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(120, 'b')))
	if pcb.ooseq == nil || pcb.ooseq.len != 120 {
		t.Fatalf("longer segment did not replace shorter one: %v", queueSpans(pcb))
	}

	// same start, less data: ditched
	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(60, 'c')))
	if pcb.ooseq.len != 120 {
		t.Errorf("shorter duplicate replaced longer segment: %v", queueSpans(pcb))
	}
	checkOrdered(t, pcb)
}

func TestQueueOutOfOrderTrimsAgainstNeighbors(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()

	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(100, 'a'))) // [1100,1200)
	h.engine.queueOutOfOrder(pcb, segIn(1300, 0, ACKFlag, bytesOf(100, 'c'))) // [1300,1400)

	// lands between, overlapping both sides: [1150,1350)
	h.engine.queueOutOfOrder(pcb, segIn(1150, 0, ACKFlag, bytesOf(200, 'b')))

	spans := queueSpans(pcb)
	want := [][2]uint32{{1100, 1150}, {1150, 1300}, {1300, 1400}}
	if len(spans) != len(want) {
		t.Fatalf("queue spans = %v, want %v", spans, want)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span[%d] = %v, want %v", i, spans[i], want[i])
		}
	}
	checkOrdered(t, pcb)
}

func TestQueueOutOfOrderCoveringSegmentDeletesCovered(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()

	h.engine.queueOutOfOrder(pcb, segIn(1150, 0, ACKFlag, bytesOf(20, 'a')))
	h.engine.queueOutOfOrder(pcb, segIn(1200, 0, ACKFlag, bytesOf(20, 'b')))
	// covers both queued segments entirely
	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(300, 'c')))

	if pcb.ooseq == nil || pcb.ooseq.next != nil {
		t.Fatalf("covered segments not deleted: %v", queueSpans(pcb))
	}
	if pcb.ooseq.seqno != 1100 || pcb.ooseq.len != 300 {
		t.Errorf("surviving span = [%d,%d), want [1100,1400)", pcb.ooseq.seqno, pcb.ooseq.seqno+pcb.ooseq.len)
	}
}

func TestQueueOutOfOrderFINInheritance(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()

	h.engine.queueOutOfOrder(pcb, segIn(1200, 0, ACKFlag|FINFlag, bytesOf(20, 'f')))
	// covers the FIN segment; the FIN must move onto the survivor
	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(200, 'a')))

	if pcb.ooseq == nil || pcb.ooseq.next != nil {
		t.Fatalf("queue = %v, want single segment", queueSpans(pcb))
	}
	if pcb.ooseq.tcpFlags&FINFlag == 0 {
		t.Error("FIN flag not inherited from covered segment")
	}
}

func TestQueueOutOfOrderAppendBehindFIN(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()

	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag|FINFlag, bytesOf(20, 'f')))
	// nothing can follow a queued FIN
	h.engine.queueOutOfOrder(pcb, segIn(1200, 0, ACKFlag, bytesOf(20, 'x')))

	if pcb.ooseq == nil || pcb.ooseq.next != nil {
		t.Errorf("segment queued past a FIN: %v", queueSpans(pcb))
	}
}

func TestQueueOutOfOrderTailAppendTrimsToWindow(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()
	pcb.rcvWnd = 600 // right edge at 1600

	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(100, 'a')))
	// tail append reaching past the window right edge
	h.engine.queueOutOfOrder(pcb, segIn(1400, 0, ACKFlag, bytesOf(400, 'b')))

	spans := queueSpans(pcb)
	if len(spans) != 2 {
		t.Fatalf("queue spans = %v, want 2 segments", spans)
	}
	if spans[1] != [2]uint32{1400, 1600} {
		t.Errorf("tail span = %v, want [1400,1600)", spans[1])
	}
	checkOrdered(t, pcb)
}

func TestOosInsertTrimAssertsSuccessorStart(t *testing.T) {
	h := newHarness()
	pcb := h.establishedPCB()

	h.engine.queueOutOfOrder(pcb, segIn(1250, 0, ACKFlag, bytesOf(50, 'b'))) // [1250,1300)
	// overlaps the queued segment's start; must be trimmed to end exactly at 1250
	h.engine.queueOutOfOrder(pcb, segIn(1100, 0, ACKFlag, bytesOf(180, 'a'))) // [1100,1280) -> [1100,1250)

	first := pcb.ooseq
	if first == nil || first.next == nil {
		t.Fatalf("queue spans = %v, want 2 segments", queueSpans(pcb))
	}
	if first.seqno+first.len != first.next.seqno {
		t.Errorf("trimmed end %d != successor start %d", first.seqno+first.len, first.next.seqno)
	}
}

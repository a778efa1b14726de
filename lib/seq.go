package lib

// Sequence number comparisons with SEQ wraparound in mind. The signed
// difference trick keeps them branch-free on the hot path.

func seqLT(a, b uint32) bool {
	return int32(a-b) < 0
}

func seqLEQ(a, b uint32) bool {
	return int32(a-b) <= 0
}

func seqGT(a, b uint32) bool {
	return int32(a-b) > 0
}

func seqGEQ(a, b uint32) bool {
	return int32(a-b) >= 0
}

// seqBetween reports whether x is in [low, high] modulo 2^32.
func seqBetween(x, low, high uint32) bool {
	return seqGEQ(x, low) && seqLEQ(x, high)
}

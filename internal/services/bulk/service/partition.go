package service

// windowSeconds is the width of one fetch window in seconds. One window maps
// to one request round and one transaction
const windowSeconds = 1000

// Span is a worker's inclusive [First, Last] share of an epoch range
type Span struct {
	First int64
	Last  int64
}

// Partition splits the inclusive range [start, end] into n contiguous spans.
// Every second of the range belongs to exactly one span; the final span
// absorbs the division remainder. Spans can be empty (Last < First) when the
// range is smaller than n
func Partition(start, end int64, n int) []Span {
	if n < 1 {
		n = 1
	}
	if end < start {
		return nil
	}

	width := (end - start + 1) / int64(n)
	spans := make([]Span, n)
	for i := range spans {
		first := start + int64(i)*width
		spans[i] = Span{First: first, Last: first + width - 1}
	}
	spans[n-1].Last = end
	return spans
}

// windows cuts a span into fetch windows of at most windowSeconds each
func windows(sp Span) []Span {
	var out []Span
	for first := sp.First; first <= sp.Last; first += windowSeconds {
		last := first + windowSeconds - 1
		if last > sp.Last {
			last = sp.Last
		}
		out = append(out, Span{First: first, Last: last})
	}
	return out
}

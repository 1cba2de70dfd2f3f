package domain

// Bounds is the inclusive [Min, Max] timestamp envelope of the events a run
// observed for one station
type Bounds struct {
	Min int64
	Max int64
}

// Widen extends the envelope to include ts
func (b Bounds) Widen(ts int64) Bounds {
	if ts < b.Min {
		b.Min = ts
	}
	if ts > b.Max {
		b.Max = ts
	}
	return b
}

// BoundsMap accumulates per-station bounds. The zero value of a map entry is
// never used: Observe seeds new stations with a degenerate [ts, ts] envelope
type BoundsMap map[string]Bounds

// Observe folds one event timestamp into the map
func (m BoundsMap) Observe(code string, ts int64) {
	if b, ok := m[code]; ok {
		m[code] = b.Widen(ts)
		return
	}
	m[code] = Bounds{Min: ts, Max: ts}
}

// MergeBounds combines per-worker bounds maps into one. The merge is
// commutative and idempotent: min of mins, max of maxes, station set is the
// union of inputs
func MergeBounds(parts ...BoundsMap) BoundsMap {
	out := BoundsMap{}
	for _, part := range parts {
		for code, b := range part {
			if have, ok := out[code]; ok {
				out[code] = have.Widen(b.Min).Widen(b.Max)
				continue
			}
			out[code] = b
		}
	}
	return out
}

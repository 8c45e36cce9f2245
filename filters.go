package armbus

// FrameFilter decides whether a frame should be delivered to a subscriber or
// logged by a decorator.
type FrameFilter func(Frame) bool

// ByID returns a filter that matches frames with the exact identifier.
func ByID(id uint32) FrameFilter {
	return func(f Frame) bool { return f.ID == id }
}

// ByIDs returns a filter that matches any of the provided identifiers.
func ByIDs(ids ...uint32) FrameFilter {
	m := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return func(f Frame) bool {
		_, ok := m[f.ID]
		return ok
	}
}

// ByRange matches frames whose ID is within [minID, maxID], inclusive.
func ByRange(minID, maxID uint32) FrameFilter {
	if maxID < minID {
		minID, maxID = maxID, minID
	}
	return func(f Frame) bool { return f.ID >= minID && f.ID <= maxID }
}

// ByMask matches when (frame.ID & mask) == (id & mask).
func ByMask(id uint32, mask uint32) FrameFilter {
	want := id & mask
	return func(f Frame) bool { return (f.ID & mask) == want }
}

// StandardOnly matches standard (11-bit) identifiers.
func StandardOnly() FrameFilter {
	return func(f Frame) bool { return !f.Extended }
}

// ExtendedOnly matches extended (29-bit) identifiers.
func ExtendedOnly() FrameFilter {
	return func(f Frame) bool { return f.Extended }
}

// DataOnly matches non-RTR frames.
func DataOnly() FrameFilter {
	return func(f Frame) bool { return !f.RTR }
}

// All matches when every non-nil filter matches. With no filters it matches
// everything.
func All(filters ...FrameFilter) FrameFilter {
	fs := compact(filters)
	switch len(fs) {
	case 0:
		return func(Frame) bool { return true }
	case 1:
		return fs[0]
	}
	return func(f Frame) bool {
		for _, fn := range fs {
			if !fn(f) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one non-nil filter matches. With no filters it
// matches nothing.
func Any(filters ...FrameFilter) FrameFilter {
	fs := compact(filters)
	if len(fs) == 1 {
		return fs[0]
	}
	return func(f Frame) bool {
		for _, fn := range fs {
			if fn(f) {
				return true
			}
		}
		return false
	}
}

// Not inverts a filter. Not(nil) matches everything.
func Not(a FrameFilter) FrameFilter {
	if a == nil {
		return func(Frame) bool { return true }
	}
	return func(f Frame) bool { return !a(f) }
}

func compact(filters []FrameFilter) []FrameFilter {
	out := make([]FrameFilter, 0, len(filters))
	for _, fn := range filters {
		if fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

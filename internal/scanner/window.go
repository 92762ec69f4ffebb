package scanner

// Window is the half-open height range [Min, Max) of one cycle.
type Window struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (w Window) Empty() bool { return w.Min >= w.Max }

// Last is the height committed when the window succeeds.
func (w Window) Last() int64 { return w.Max - 1 }

func (w Window) Size() int64 {
	if w.Empty() {
		return 0
	}
	return w.Max - w.Min
}

// ComputeWindow returns the next heights to scan given the reorg safe head and
// the last processed height. A processed height at or past the safe head
// yields an empty window starting at safeHead+1.
func ComputeWindow(safeHead, processed, windowCap int64) Window {
	lo := processed + 1
	if safeHead <= processed {
		lo = safeHead + 1
	}
	hi := lo + windowCap
	if safeHead+1 < hi {
		hi = safeHead + 1
	}
	return Window{Min: lo, Max: hi}
}

package convert

import (
	"fmt"
	"strconv"
	"strings"
)

// StartBound selects the first frame of a capture window: a 1-based
// index counted from the front, or from the back when Backward is set.
type StartBound struct {
	N        int
	Backward bool
}

// EndBound selects the frame past the end of the window: a 1-based
// index from the front or back, or a count relative to the start frame
// when Relative is set.
type EndBound struct {
	N        int
	Backward bool
	Relative bool
}

// ParseStartBound parses the --start selector: "N" is a forward 1-based
// index, "-N" counts from the end. An empty selector means the first
// frame.
func ParseStartBound(s string) (*StartBound, error) {
	if s == "" {
		return nil, nil
	}
	b := &StartBound{}
	if strings.HasPrefix(s, "-") {
		b.Backward = true
		s = s[1:]
	}
	n, err := parseIndex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: start selector %q must be a non-zero index", ErrFrameRangeInvalid, s)
	}
	b.N = n
	return b, nil
}

// ParseEndBound parses the --end selector: "N" forward, "-N" backward,
// "+N" a count of frames from the start. An empty selector means the
// last frame.
func ParseEndBound(s string) (*EndBound, error) {
	if s == "" {
		return nil, nil
	}
	b := &EndBound{}
	switch {
	case strings.HasPrefix(s, "-"):
		b.Backward = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		b.Relative = true
		s = s[1:]
	}
	n, err := parseIndex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: end selector %q must be a non-zero index", ErrFrameRangeInvalid, s)
	}
	b.N = n
	return b, nil
}

// parseIndex parses the digits left after the sign prefix has been
// consumed. ParseUint keeps a second sign from sneaking through, so
// forms like "-+3" or "++3" are rejected rather than read as 3.
func parseIndex(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}
	return int(n), nil
}

// Window is a resolved half-open frame index range.
type Window struct {
	Start, End int
}

// Contains reports whether the frame index falls inside the window.
func (w Window) Contains(i int) bool {
	return i >= w.Start && i < w.End
}

// ResolveWindow turns the start/end selectors into absolute indices
// against the capture's total frame count. Nil bounds default to the
// first and one-past-last frame.
func ResolveWindow(start *StartBound, end *EndBound, totalFrames int) (Window, error) {
	var w Window

	switch {
	case start == nil:
		w.Start = 0
	case start.Backward:
		if start.N > totalFrames {
			return Window{}, fmt.Errorf("%w: start %d from the end exceeds %d total frames",
				ErrFrameRangeInvalid, start.N, totalFrames)
		}
		w.Start = totalFrames - start.N
	default:
		w.Start = start.N - 1
	}

	switch {
	case end == nil:
		w.End = totalFrames
	case end.Backward:
		if end.N > totalFrames {
			return Window{}, fmt.Errorf("%w: end %d from the end exceeds %d total frames",
				ErrFrameRangeInvalid, end.N, totalFrames)
		}
		w.End = totalFrames + 1 - end.N
	case end.Relative:
		// The count is validated against the capture total, not the
		// frames remaining after start; kept as-is for compatibility.
		if end.N > totalFrames {
			return Window{}, fmt.Errorf("%w: count %d exceeds %d total frames",
				ErrFrameRangeInvalid, end.N, totalFrames)
		}
		w.End = w.Start + end.N
	default:
		if end.N > totalFrames {
			return Window{}, fmt.Errorf("%w: end %d exceeds %d total frames",
				ErrFrameRangeInvalid, end.N, totalFrames)
		}
		w.End = end.N
	}

	if w.End <= w.Start {
		return Window{}, fmt.Errorf("%w: start frame %d must precede end %d",
			ErrFrameRangeInvalid, w.Start, w.End)
	}
	return w, nil
}

// requiresFullScan reports whether resolving the bounds needs the total
// frame count, forcing a counting pass over the capture.
func requiresFullScan(start *StartBound, end *EndBound) bool {
	return (start != nil && start.Backward) || (end != nil && end.Backward)
}

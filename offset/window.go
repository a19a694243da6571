package offset

// Window is a physical (start, count) slice of the remote collection.
// A Count of 0 asks the endpoint for its default page size.
type Window struct {
	Start int
	Count int
}

// At returns a window of count records at start.
func At(start, count int) Window {
	return Window{Start: start, Count: count}
}

// End is the offset just past the window.
func (w Window) End() int {
	return w.Start + w.Count
}

// Advance returns the window that starts after consumed records and keeps
// the given count. consumed is the number of records the endpoint actually
// returned, which may be smaller than Count.
func (w Window) Advance(consumed, count int) Window {
	return Window{Start: w.Start + consumed, Count: count}
}

// Reached reports whether the window starts at or beyond total.
func (w Window) Reached(total int) bool {
	return w.Start >= total
}

// Short reports whether returned records fill less than the window.
func (w Window) Short(returned int) bool {
	return w.Count > 0 && returned < w.Count
}

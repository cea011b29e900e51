// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

// window is the live encoding window over the target stream: a fixed-capacity
// circular byte buffer of up to one block.
//
// The actual position of logical byte i is ((head + i) % cap(data)).
type window struct {
	data []byte
	head int
	size int
}

func newWindow(capacity int) *window {
	return &window{
		data: make([]byte, capacity),
	}
}

// fill appends bytes to the window; the window must have room for them.
func (w *window) fill(p []byte) {
	for _, c := range p {
		w.data[(w.head+w.size)%len(w.data)] = c
		w.size++
	}
}

// slide pushes one byte into a full window, returning the evicted oldest byte.
func (w *window) slide(in byte) (out byte) {
	out = w.data[w.head]
	w.data[w.head] = in
	w.head = (w.head + 1) % len(w.data)

	return out
}

// popFront drops and returns the oldest byte of the window.
func (w *window) popFront() byte {
	out := w.data[w.head]
	w.head = (w.head + 1) % len(w.data)
	w.size--

	return out
}

// copyTo copies the window contents into p in logical order; p must
// have room for len() bytes.
func (w *window) copyTo(p []byte) []byte {
	n := copy(p, w.data[w.head:min(w.head+w.size, len(w.data))])
	copy(p[n:w.size], w.data[:w.size-n])

	return p[:w.size]
}

func (w *window) len() int {
	return w.size
}

func (w *window) reset() {
	w.head, w.size = 0, 0
}

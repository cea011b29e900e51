// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

// mod is the modulus of the two rolling accumulators, as in the rsync thesis.
const mod = 1 << 16

// Rollsum is the weak rolling checksum over a window of bytes.
//
// The window itself is stored elsewhere, Rollsum only keeps the two 16-bit
// accumulators, so the whole window can be set at once or rolled forward
// one byte at a time in O(1).
//
// The zero value is the checksum of the empty window.
type Rollsum struct {
	a, b uint32
}

// Update extends the window with the given bytes.
func (r *Rollsum) Update(p []byte) {
	for _, c := range p {
		r.a += uint32(c)
		r.b += r.a
	}
}

// Roll slides a full window one byte forward: out leaves the window, in enters it.
//
// windowLen is the window length, which doesn't change during the roll.
func (r *Rollsum) Roll(out, in byte, windowLen int) {
	r.a += uint32(in) - uint32(out)
	r.b += r.a - uint32(windowLen)*uint32(out)
}

// Remove shrinks the window by dropping its oldest byte.
//
// windowLen is the window length before the removal.
func (r *Rollsum) Remove(out byte, windowLen int) {
	r.a -= uint32(out)
	r.b -= uint32(windowLen) * uint32(out)
}

// Sum32 returns the current checksum value.
//
// The empty window sums to 0.
func (r *Rollsum) Sum32() uint32 {
	return r.a&(mod-1) | r.b&(mod-1)<<16
}

// Reset returns the checksum to the empty window state.
func (r *Rollsum) Reset() {
	r.a, r.b = 0, 0
}

// WeakChecksum is a convenience helper computing the rolling checksum of a whole block.
func WeakChecksum(p []byte) uint32 {
	var r Rollsum

	r.Update(p)

	return r.Sum32()
}

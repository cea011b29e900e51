// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

// Index is the weak checksum lookup structure used during delta encoding.
//
// It maps a weak checksum to the basis blocks carrying it; several blocks may
// share a weak checksum, so a hit is only a candidate until the strong hash
// confirms it.
//
// Index keeps a read-only view of the signature and must not outlive it.
// It is safe for concurrent lookups once built.
type Index struct {
	sig *Signature

	blocks map[uint32][]int
}

// NewIndex builds the lookup structure in a single pass over the signature.
func NewIndex(sig *Signature) *Index {
	blocks := make(map[uint32][]int, len(sig.Blocks))

	// iteration in block order keeps each candidate list sorted by block index
	for i, block := range sig.Blocks {
		blocks[block.Weak] = append(blocks[block.Weak], i)
	}

	return &Index{
		sig:    sig,
		blocks: blocks,
	}
}

// Lookup returns the indices of basis blocks with the given weak checksum,
// in ascending order, or nil if there are none.
func (idx *Index) Lookup(weak uint32) []int {
	return idx.blocks[weak]
}

// BlockStrong returns the stored strong hash of the given basis block.
func (idx *Index) BlockStrong(block int) []byte {
	return idx.sig.Blocks[block].Strong
}

// BlockLength returns the basis block length of the underlying signature.
func (idx *Index) BlockLength() int {
	return idx.sig.BlockLength
}

// Blocks returns the number of basis blocks in the underlying signature.
func (idx *Index) Blocks() int {
	return len(idx.sig.Blocks)
}

// Signature returns the underlying signature.
func (idx *Index) Signature() *Signature {
	return idx.sig
}

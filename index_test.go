// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-delta"
)

func TestIndexLookup(t *testing.T) {
	t.Parallel()

	sig := &delta.Signature{
		Blocks: []delta.BlockSum{
			{Weak: 0xdead, Strong: []byte{1}},
			{Weak: 0xbeef, Strong: []byte{2}},
			{Weak: 0xdead, Strong: []byte{3}},
			{Weak: 0xdead, Strong: []byte{4}},
		},
		BlockLength:      8,
		StrongHashLength: 1,
		Algorithm:        delta.SHA256,
	}

	idx := delta.NewIndex(sig)

	assert.Equal(t, 8, idx.BlockLength())
	assert.Equal(t, 4, idx.Blocks())
	assert.Same(t, sig, idx.Signature())

	// colliding weak checksums keep all candidates, lowest block index first
	assert.Equal(t, []int{0, 2, 3}, idx.Lookup(0xdead))
	assert.Equal(t, []int{1}, idx.Lookup(0xbeef))
	assert.Nil(t, idx.Lookup(0xcafe))

	assert.Equal(t, []byte{3}, idx.BlockStrong(2))
}

func TestIndexFromBuiltSignature(t *testing.T) {
	t.Parallel()

	basis := bytes.Repeat([]byte{0x41}, 1024)

	sig, err := delta.BuildSignature(bytes.NewReader(basis), delta.WithBlockLength(256))
	require.NoError(t, err)

	idx := delta.NewIndex(sig)

	// uniform basis: all blocks collide on the same weak checksum
	assert.Equal(t, []int{0, 1, 2, 3}, idx.Lookup(sig.Blocks[0].Weak))
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta_test

import (
	"bytes"
	cryptorand "crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-delta"
)

func TestBuildSignature(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		basis   []byte
		options []delta.OptionFunc

		expectedBlocks           int
		expectedStrongHashLength int
	}{
		{
			name: "empty basis",

			options: []delta.OptionFunc{delta.WithBlockLength(256)},

			expectedBlocks:           0,
			expectedStrongHashLength: 64,
		},
		{
			name: "uniform blocks",

			basis:   bytes.Repeat([]byte{0x41}, 1024),
			options: []delta.OptionFunc{delta.WithBlockLength(256)},

			expectedBlocks:           4,
			expectedStrongHashLength: 64,
		},
		{
			name: "short final block",

			basis:   bytes.Repeat([]byte{0x41}, 1000),
			options: []delta.OptionFunc{delta.WithBlockLength(256)},

			expectedBlocks:           4,
			expectedStrongHashLength: 64,
		},
		{
			name: "truncated strong hash",

			basis: bytes.Repeat([]byte{0x41}, 1024),
			options: []delta.OptionFunc{
				delta.WithBlockLength(256),
				delta.WithStrongHashAlgorithm(delta.SHA256),
				delta.WithStrongHashLength(8),
			},

			expectedBlocks:           4,
			expectedStrongHashLength: 8,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			sig, err := delta.BuildSignature(bytes.NewReader(test.basis), test.options...)
			require.NoError(t, err)

			assert.Len(t, sig.Blocks, test.expectedBlocks)
			assert.Equal(t, 256, sig.BlockLength)
			assert.Equal(t, test.expectedStrongHashLength, sig.StrongHashLength)

			for _, block := range sig.Blocks {
				assert.Len(t, block.Strong, test.expectedStrongHashLength)
			}
		})
	}
}

func TestBuildSignatureUniformBlocks(t *testing.T) {
	t.Parallel()

	// uniform basis content: every block carries identical checksums
	sig, err := delta.BuildSignature(bytes.NewReader(bytes.Repeat([]byte{0x41}, 1024)), delta.WithBlockLength(256))
	require.NoError(t, err)

	require.Len(t, sig.Blocks, 4)

	for _, block := range sig.Blocks[1:] {
		assert.Equal(t, sig.Blocks[0].Weak, block.Weak)
		assert.Equal(t, sig.Blocks[0].Strong, block.Strong)
	}
}

func TestBuildSignatureDeterministic(t *testing.T) {
	t.Parallel()

	basis, err := io.ReadAll(io.LimitReader(cryptorand.Reader, 100_000))
	require.NoError(t, err)

	serialize := func(sig *delta.Signature) []byte {
		var buf bytes.Buffer

		_, err := sig.WriteTo(&buf)
		require.NoError(t, err)

		return buf.Bytes()
	}

	serial, err := delta.BuildSignature(bytes.NewReader(basis), delta.WithBlockLength(1024))
	require.NoError(t, err)

	repeated, err := delta.BuildSignature(bytes.NewReader(basis), delta.WithBlockLength(1024))
	require.NoError(t, err)

	require.Equal(t, serialize(serial), serialize(repeated))

	// out-of-order hashing, in-order assembly: concurrency doesn't change the result
	concurrent, err := delta.BuildSignature(bytes.NewReader(basis),
		delta.WithBlockLength(1024),
		delta.WithConcurrency(8),
	)
	require.NoError(t, err)

	require.Equal(t, serialize(serial), serialize(concurrent))
}

func TestBuildSignatureInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := delta.BuildSignature(bytes.NewReader(nil),
		delta.WithStrongHashAlgorithm(delta.SHA256),
		delta.WithStrongHashLength(33),
	)
	assert.ErrorIs(t, err, delta.ErrInvalidConfig)
}

func TestSignatureRoundTrip(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		basisLen int
		options  []delta.OptionFunc
	}{
		{
			name: "empty",

			options: []delta.OptionFunc{delta.WithBlockLength(512)},
		},
		{
			name: "default algorithm",

			basisLen: 10_000,
			options:  []delta.OptionFunc{delta.WithBlockLength(512)},
		},
		{
			name: "blake3 truncated",

			basisLen: 4096,
			options: []delta.OptionFunc{
				delta.WithBlockLength(512),
				delta.WithStrongHashAlgorithm(delta.BLAKE3),
				delta.WithStrongHashLength(16),
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			basis, err := io.ReadAll(io.LimitReader(cryptorand.Reader, int64(test.basisLen)))
			require.NoError(t, err)

			sig, err := delta.BuildSignature(bytes.NewReader(basis), test.options...)
			require.NoError(t, err)

			var buf bytes.Buffer

			n, err := sig.WriteTo(&buf)
			require.NoError(t, err)
			require.EqualValues(t, buf.Len(), n)

			decoded, err := delta.ReadSignature(&buf)
			require.NoError(t, err)

			assert.Equal(t, sig.BlockLength, decoded.BlockLength)
			assert.Equal(t, sig.StrongHashLength, decoded.StrongHashLength)
			assert.Equal(t, sig.Algorithm, decoded.Algorithm)
			assert.Equal(t, sig.Blocks, decoded.Blocks)
		})
	}
}

func TestReadSignatureMalformed(t *testing.T) {
	t.Parallel()

	sig, err := delta.BuildSignature(bytes.NewReader(bytes.Repeat([]byte{0xfe}, 2048)), delta.WithBlockLength(512))
	require.NoError(t, err)

	var buf bytes.Buffer

	_, err = sig.WriteTo(&buf)
	require.NoError(t, err)

	valid := buf.Bytes()

	mutate := func(mutation func(p []byte) []byte) []byte {
		return mutation(bytes.Clone(valid))
	}

	for _, test := range []struct {
		name string

		input []byte
	}{
		{
			name: "empty input",
		},
		{
			name: "truncated header",

			input: valid[:7],
		},
		{
			name: "truncated records",

			input: valid[:len(valid)-10],
		},
		{
			name: "unsupported version",

			input: mutate(func(p []byte) []byte {
				p[0] = 99

				return p
			}),
		},
		{
			name: "unsupported algorithm",

			input: mutate(func(p []byte) []byte {
				p[1] = 0xff

				return p
			}),
		},
		{
			name: "zero block length",

			input: mutate(func(p []byte) []byte {
				copy(p[2:6], []byte{0, 0, 0, 0})

				return p
			}),
		},
		{
			name: "oversized strong hash length",

			input: mutate(func(p []byte) []byte {
				copy(p[6:10], []byte{0, 0, 0, 0xff})

				return p
			}),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := delta.ReadSignature(bytes.NewReader(test.input))
			assert.ErrorIs(t, err, delta.ErrMalformedStream)
		})
	}
}

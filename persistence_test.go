// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta_test

import (
	"bytes"
	cryptorand "crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/siderolabs/gen/xtesting/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/go-delta"
	"github.com/siderolabs/go-delta/zstd"
)

func TestSignatureSaveLoad(t *testing.T) {
	t.Parallel()

	basis, err := io.ReadAll(io.LimitReader(cryptorand.Reader, 50_000))
	require.NoError(t, err)

	sig, err := delta.BuildSignature(bytes.NewReader(basis), delta.WithBlockLength(1024))
	require.NoError(t, err)

	for _, test := range []struct {
		name string

		options func(t *testing.T) []delta.OptionFunc
	}{
		{
			name: "plain",

			options: func(t *testing.T) []delta.OptionFunc {
				t.Helper()

				return []delta.OptionFunc{
					delta.WithLogger(zaptest.NewLogger(t)),
				}
			},
		},
		{
			name: "compressed",

			options: func(t *testing.T) []delta.OptionFunc {
				t.Helper()

				return []delta.OptionFunc{
					delta.WithCompressor(must.Value(zstd.NewCompressor())(t)),
					delta.WithLogger(zaptest.NewLogger(t)),
				}
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "basis.sig")
			opts := test.options(t)

			require.NoError(t, sig.Save(path, opts...))

			loaded, err := delta.LoadSignature(path, opts...)
			require.NoError(t, err)

			assert.Equal(t, sig, loaded)

			// no temporary file left behind
			_, err = os.Stat(path + ".tmp")
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestDeltaSaveLoad(t *testing.T) {
	t.Parallel()

	instructions := []delta.Instruction{
		delta.Copy(0, 4096),
		delta.Literal(bytes.Repeat([]byte{0x42}, 1024)),
		delta.Copy(8192, 4096),
	}

	path := filepath.Join(t.TempDir(), "target.delta")
	compressor := must.Value(zstd.NewCompressor())(t)

	require.NoError(t, delta.SaveDelta(path, instructions,
		delta.WithCompressor(compressor),
		delta.WithLogger(zaptest.NewLogger(t)),
	))

	loaded, err := delta.LoadDelta(path, delta.WithCompressor(compressor))
	require.NoError(t, err)

	require.Len(t, loaded, len(instructions))

	for i, in := range instructions {
		assert.True(t, in.Equal(loaded[i]), "instruction %d: %s != %s", i, in, loaded[i])
	}
}

func TestLoadSignatureErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := delta.LoadSignature(filepath.Join(dir, "missing.sig"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbagePath := filepath.Join(dir, "garbage.sig")
	require.NoError(t, os.WriteFile(garbagePath, []byte("not a signature"), 0o644))

	_, err = delta.LoadSignature(garbagePath)
	assert.ErrorIs(t, err, delta.ErrMalformedStream)

	// compressed file loaded without a compressor
	sig, err := delta.BuildSignature(bytes.NewReader(bytes.Repeat([]byte{1}, 4096)), delta.WithBlockLength(512))
	require.NoError(t, err)

	compressedPath := filepath.Join(dir, "compressed.sig")
	require.NoError(t, sig.Save(compressedPath, delta.WithCompressor(must.Value(zstd.NewCompressor())(t))))

	_, err = delta.LoadSignature(compressedPath)
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

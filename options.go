// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import (
	"fmt"

	"go.uber.org/zap"
)

// Options defines settings for signature building, delta encoding and persistence.
type Options struct {
	Compressor Compressor

	Logger *zap.Logger

	BlockLength      int
	StrongHashLength int

	StrongHash StrongHashAlgorithm

	Concurrency int
}

// Compressor implements an optional interface for compressing persisted
// signature and delta files.
//
// Compress and Decompress append to the dest slice and return the result.
//
// Compressor should be safe for concurrent use by multiple goroutines.
// Compressor should verify checksums of the compressed data.
type Compressor interface {
	Compress(src, dest []byte) ([]byte, error)
	Decompress(src, dest []byte) ([]byte, error)
}

// defaultOptions returns default initial values.
func defaultOptions() Options {
	return Options{
		BlockLength: 2048,
		StrongHash:  BLAKE2b512,
		Concurrency: 1,
		Logger:      zap.NewNop(),
	}
}

// OptionFunc allows setting options.
type OptionFunc func(*Options) error

// WithBlockLength sets the basis block length.
//
// Larger blocks mean smaller signatures but coarser match granularity.
func WithBlockLength(length int) OptionFunc {
	return func(opt *Options) error {
		if length <= 0 {
			return fmt.Errorf("block length should be positive: %d: %w", length, ErrInvalidConfig)
		}

		opt.BlockLength = length

		return nil
	}
}

// WithStrongHashAlgorithm selects the strong hash used to confirm block matches.
func WithStrongHashAlgorithm(algorithm StrongHashAlgorithm) OptionFunc {
	return func(opt *Options) error {
		if !algorithm.Available() {
			return fmt.Errorf("unsupported strong hash algorithm: %d: %w", algorithm, ErrInvalidConfig)
		}

		opt.StrongHash = algorithm

		return nil
	}
}

// WithStrongHashLength truncates stored strong hashes to the given length.
//
// Truncation trades signature size for collision probability; the length is
// capped by the native digest size of the selected algorithm at signature
// build time. Default is the full digest.
func WithStrongHashLength(length int) OptionFunc {
	return func(opt *Options) error {
		if length <= 0 {
			return fmt.Errorf("strong hash length should be positive: %d: %w", length, ErrInvalidConfig)
		}

		opt.StrongHashLength = length

		return nil
	}
}

// WithConcurrency sets the number of goroutines hashing basis blocks during
// signature build.
//
// Blocks are hashed out of order and assembled in stream order, so the
// resulting signature doesn't depend on the concurrency level. Default is 1.
func WithConcurrency(n int) OptionFunc {
	return func(opt *Options) error {
		if n <= 0 {
			return fmt.Errorf("concurrency should be positive: %d: %w", n, ErrInvalidConfig)
		}

		opt.Concurrency = n

		return nil
	}
}

// WithCompressor enables compression of persisted signature and delta files.
func WithCompressor(c Compressor) OptionFunc {
	return func(opt *Options) error {
		if c == nil {
			return fmt.Errorf("compressor should be set: %w", ErrInvalidConfig)
		}

		opt.Compressor = c

		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) OptionFunc {
	return func(opt *Options) error {
		opt.Logger = logger

		return nil
	}
}

func buildOptions(opts ...OptionFunc) (Options, error) {
	opt := defaultOptions()

	for _, o := range opts {
		if err := o(&opt); err != nil {
			return opt, err
		}
	}

	return opt, nil
}

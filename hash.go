// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import (
	"hash"

	sha256 "github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// StrongHashAlgorithm identifies the strong hash used to confirm block matches
// after a weak checksum hit.
//
// The algorithm is chosen at signature build time via WithStrongHashAlgorithm
// and recorded in the serialized signature.
type StrongHashAlgorithm byte

// Supported strong hash algorithms.
const (
	SHA256 StrongHashAlgorithm = iota + 1
	BLAKE2b512
	BLAKE3
)

var strongHashAlgorithms = map[StrongHashAlgorithm]string{
	SHA256:     "sha256",
	BLAKE2b512: "blake2b",
	BLAKE3:     "blake3",
}

// New returns a new hash.Hash computing the algorithm.
func (a StrongHashAlgorithm) New() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case BLAKE2b512:
		b2, _ := blake2b.New512(nil) // New512 never returns an error if the key is nil
		return b2
	case BLAKE3:
		return blake3.New()
	default:
		return nil
	}
}

// Size returns the native digest size of the algorithm in bytes.
func (a StrongHashAlgorithm) Size() int {
	switch a {
	case SHA256, BLAKE3:
		return 32
	case BLAKE2b512:
		return 64
	default:
		return 0
	}
}

// Available reports whether the algorithm is supported.
func (a StrongHashAlgorithm) Available() bool {
	_, ok := strongHashAlgorithms[a]

	return ok
}

// String returns the string identifier of the algorithm, or an empty string
// if the algorithm is not supported.
func (a StrongHashAlgorithm) String() string {
	return strongHashAlgorithms[a]
}

// StrongHashAlgorithmFromString returns an algorithm from its string identifier.
//
// It returns 0 (an unsupported value) if the identifier doesn't match any
// supported algorithm.
func StrongHashAlgorithmFromString(s string) StrongHashAlgorithm {
	for a, name := range strongHashAlgorithms {
		if name == s {
			return a
		}
	}

	return 0
}

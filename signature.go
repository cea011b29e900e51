// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// signatureFormatVersion is the version byte of the serialized signature format.
const signatureFormatVersion = 1

// signatureHeaderLen is version + algorithm + blockLen + strongHashLen + blockCount.
const signatureHeaderLen = 1 + 1 + 4 + 4 + 4

// BlockSum holds the checksum pair of a single basis block.
type BlockSum struct {
	// Strong is the strong hash of the block, truncated to StrongHashLength.
	Strong []byte

	// Weak is the rolling checksum of the block.
	Weak uint32
}

// Signature describes a basis stream as an ordered sequence of per-block
// checksum pairs.
//
// A signature is enough to compute a delta against the basis without access
// to the basis itself.
type Signature struct {
	// Blocks are the per-block checksums, in basis stream order.
	//
	// The last block may cover less than BlockLength bytes of the basis.
	Blocks []BlockSum

	BlockLength      int
	StrongHashLength int

	Algorithm StrongHashAlgorithm
}

// BuildSignature reads the basis stream once and computes its signature.
//
// The basis is split into non-overlapping blocks of BlockLength bytes (the
// final block may be shorter) and a (weak, strong) checksum pair is computed
// for each. The result is deterministic for identical input and options,
// regardless of the concurrency level.
//
// An empty basis yields a signature with zero blocks. I/O errors from the
// basis reader are returned unmodified.
func BuildSignature(basis io.Reader, opts ...OptionFunc) (*Signature, error) {
	opt, err := buildOptions(opts...)
	if err != nil {
		return nil, err
	}

	hashLen := opt.StrongHashLength
	if hashLen == 0 {
		hashLen = opt.StrongHash.Size()
	}

	if hashLen > opt.StrongHash.Size() {
		return nil, fmt.Errorf("strong hash length (%d) should not exceed native digest size (%d): %w",
			hashLen, opt.StrongHash.Size(), ErrInvalidConfig)
	}

	sig := &Signature{
		BlockLength:      opt.BlockLength,
		StrongHashLength: hashLen,
		Algorithm:        opt.StrongHash,
	}

	start := time.Now()

	if opt.Concurrency > 1 {
		err = buildConcurrent(basis, sig, opt)
	} else {
		err = buildSerial(basis, sig)
	}

	if err != nil {
		return nil, err
	}

	opt.Logger.Debug("signature built",
		zap.Int("blocks", len(sig.Blocks)),
		zap.Int("block_length", sig.BlockLength),
		zap.String("algorithm", sig.Algorithm.String()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return sig, nil
}

// readBlock reads the next basis block, returning a nil slice at the clean
// end of the stream.
func readBlock(basis io.Reader, buf []byte) ([]byte, error) {
	n, err := io.ReadFull(basis, buf)

	switch err {
	case io.EOF:
		return nil, nil
	case io.ErrUnexpectedEOF:
		// short final block
		return buf[:n], nil
	default:
		return buf[:n], err
	}
}

func buildSerial(basis io.Reader, sig *Signature) error {
	hasher := sig.Algorithm.New()
	buf := make([]byte, sig.BlockLength)
	digest := make([]byte, 0, hasher.Size())

	for {
		block, err := readBlock(basis, buf)
		if err != nil {
			return err
		}

		if block == nil {
			return nil
		}

		hasher.Reset()
		hasher.Write(block)
		digest = hasher.Sum(digest[:0])

		sig.Blocks = append(sig.Blocks, BlockSum{
			Weak:   WeakChecksum(block),
			Strong: append([]byte(nil), digest[:sig.StrongHashLength]...),
		})
	}
}

// buildConcurrent hashes blocks out of order on opt.Concurrency goroutines and
// assembles strong hashes in block order afterwards, so the result is identical
// to the serial build.
func buildConcurrent(basis io.Reader, sig *Signature, opt Options) error {
	type digest struct {
		strong []byte
		idx    int
	}

	var eg errgroup.Group

	eg.SetLimit(opt.Concurrency)

	results := make(chan digest, opt.Concurrency)
	collected := make(chan [][]byte)

	go func() {
		var strongs [][]byte

		for res := range results {
			for res.idx >= len(strongs) {
				strongs = append(strongs, nil)
			}

			strongs[res.idx] = res.strong
		}

		collected <- strongs
	}()

	var readErr error

	for idx := 0; ; idx++ {
		buf := make([]byte, sig.BlockLength)

		block, err := readBlock(basis, buf)
		if err != nil {
			readErr = err

			break
		}

		if block == nil {
			break
		}

		sig.Blocks = append(sig.Blocks, BlockSum{Weak: WeakChecksum(block)})

		i := idx

		eg.Go(func() error {
			hasher := sig.Algorithm.New()
			hasher.Write(block)

			results <- digest{
				idx:    i,
				strong: hasher.Sum(nil)[:sig.StrongHashLength],
			}

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	close(results)

	strongs := <-collected

	if readErr != nil {
		return readErr
	}

	for i := range sig.Blocks {
		sig.Blocks[i].Strong = strongs[i]
	}

	return nil
}

// WriteTo implements io.WriterTo, serializing the signature.
//
// The format is a header of (version byte, algorithm byte, big-endian u32
// block length, u32 strong hash length, u32 block count) followed by one
// (u32 weak checksum, strong hash bytes) record per block.
func (s *Signature) WriteTo(w io.Writer) (int64, error) {
	header := make([]byte, signatureHeaderLen)
	header[0] = signatureFormatVersion
	header[1] = byte(s.Algorithm)
	binary.BigEndian.PutUint32(header[2:], uint32(s.BlockLength))
	binary.BigEndian.PutUint32(header[6:], uint32(s.StrongHashLength))
	binary.BigEndian.PutUint32(header[10:], uint32(len(s.Blocks)))

	n, err := w.Write(header)
	total := int64(n)

	if err != nil {
		return total, err
	}

	record := make([]byte, 4+s.StrongHashLength)

	for _, block := range s.Blocks {
		binary.BigEndian.PutUint32(record, block.Weak)
		copy(record[4:], block.Strong)

		n, err = w.Write(record)
		total += int64(n)

		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// ReadSignature deserializes a signature written by WriteTo.
//
// It fails with ErrMalformedStream on truncated input, an unsupported format
// version or algorithm, or inconsistent header fields.
func ReadSignature(r io.Reader) (*Signature, error) {
	header := make([]byte, signatureHeaderLen)

	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated signature header: %w", ErrMalformedStream)
		}

		return nil, err
	}

	if header[0] != signatureFormatVersion {
		return nil, fmt.Errorf("unsupported signature format version %d: %w", header[0], ErrMalformedStream)
	}

	algorithm := StrongHashAlgorithm(header[1])
	if !algorithm.Available() {
		return nil, fmt.Errorf("unsupported strong hash algorithm %d: %w", header[1], ErrMalformedStream)
	}

	blockLength := int(binary.BigEndian.Uint32(header[2:]))
	hashLen := int(binary.BigEndian.Uint32(header[6:]))
	blockCount := int(binary.BigEndian.Uint32(header[10:]))

	if blockLength == 0 {
		return nil, fmt.Errorf("zero block length: %w", ErrMalformedStream)
	}

	if hashLen == 0 || hashLen > algorithm.Size() {
		return nil, fmt.Errorf("strong hash length %d out of range for %s: %w", hashLen, algorithm, ErrMalformedStream)
	}

	sig := &Signature{
		Blocks:           make([]BlockSum, 0, min(blockCount, 1<<16)),
		BlockLength:      blockLength,
		StrongHashLength: hashLen,
		Algorithm:        algorithm,
	}

	record := make([]byte, 4+hashLen)

	for range blockCount {
		if _, err := io.ReadFull(r, record); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("truncated signature record: %w", ErrMalformedStream)
			}

			return nil, err
		}

		sig.Blocks = append(sig.Blocks, BlockSum{
			Weak:   binary.BigEndian.Uint32(record),
			Strong: append([]byte(nil), record[4:]...),
		})
	}

	return sig, nil
}

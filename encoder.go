// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package delta implements rsync-style delta encoding of byte streams.
//
// A basis stream is summarized once into a Signature of per-block (weak,
// strong) checksum pairs. A target stream is then encoded against the
// signature into a sequence of copy/literal instructions, and the
// instructions are replayed against the basis to reconstruct the target.
package delta

import (
	"bufio"
	"bytes"
	"hash"
	"io"

	"go.uber.org/zap"
)

// Encoder computes a delta between a target stream and a basis signature.
//
// The encoder slides a one-block window over the target stream, probing the
// signature index with the window's rolling checksum; a hit is confirmed by
// hashing the window with the signature's strong hash. Matches become copy
// instructions, everything between them becomes literal runs.
//
// Encoder is not safe for concurrent use; each Encode call owns its window
// and pending instruction state exclusively.
type Encoder struct {
	idx *Index

	hasher  hash.Hash
	scratch []byte
	digest  []byte

	opt Options
}

// NewEncoder creates an encoder for the given signature index.
func NewEncoder(index *Index, opts ...OptionFunc) (*Encoder, error) {
	opt, err := buildOptions(opts...)
	if err != nil {
		return nil, err
	}

	hasher := index.Signature().Algorithm.New()

	return &Encoder{
		idx:     index,
		hasher:  hasher,
		scratch: make([]byte, index.BlockLength()),
		digest:  make([]byte, 0, hasher.Size()),
		opt:     opt,
	}, nil
}

// EncodeAll encodes the target stream and returns the full instruction sequence.
func (e *Encoder) EncodeAll(target io.Reader) ([]Instruction, error) {
	var instructions []Instruction

	err := e.Encode(target, func(in Instruction) error {
		instructions = append(instructions, in)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return instructions, nil
}

// Encode encodes the target stream in a single pass, emitting instructions
// lazily through the callback.
//
// Adjacent literals are coalesced into one instruction, and copies of
// contiguous basis spans are merged, so the callback never sees two
// consecutive literals or two mergeable copies. When several basis blocks
// match the window, the lowest block index wins. The concatenated outputs of
// the emitted instructions reproduce the target stream exactly.
//
// I/O errors from the target reader and errors from the callback abort the
// pass and are returned unmodified.
func (e *Encoder) Encode(target io.Reader, emit func(Instruction) error) error {
	blockLen := e.idx.BlockLength()

	var (
		sum Rollsum
		out emitter
	)

	out.emit = emit

	win := newWindow(blockLen)
	br := bufio.NewReader(target)
	buf := make([]byte, blockLen)

	fill := func() (bool, error) {
		n, err := io.ReadFull(br, buf)

		win.fill(buf[:n])
		sum.Update(buf[:n])

		switch err {
		case nil:
			return false, nil
		case io.EOF, io.ErrUnexpectedEOF:
			return true, nil
		default:
			return false, err
		}
	}

	exhausted, err := fill()
	if err != nil {
		return err
	}

	for win.len() > 0 {
		if block := e.match(win, sum.Sum32()); block >= 0 {
			if err = out.copySpan(uint64(block)*uint64(blockLen), uint64(win.len())); err != nil {
				return err
			}

			// skip past the matched region, no overlap
			win.reset()
			sum.Reset()

			if !exhausted {
				if exhausted, err = fill(); err != nil {
					return err
				}
			}

			continue
		}

		if !exhausted {
			var in byte

			in, err = br.ReadByte()

			switch err {
			case nil:
				evicted := win.slide(in)
				sum.Roll(evicted, in, win.len())

				if err = out.literalByte(evicted); err != nil {
					return err
				}

				continue
			case io.EOF:
				exhausted = true
			default:
				return err
			}
		}

		// target exhausted: shrink the window, still probing for a short
		// final basis block on every step
		evicted := win.popFront()
		sum.Remove(evicted, win.len()+1)

		if err = out.literalByte(evicted); err != nil {
			return err
		}
	}

	if err = out.flush(); err != nil {
		return err
	}

	e.opt.Logger.Debug("delta encoded",
		zap.Int("instructions", out.emitted),
		zap.Uint64("copy_bytes", out.copyBytes),
		zap.Uint64("literal_bytes", out.literalBytes),
	)

	return nil
}

// match returns the lowest basis block index whose checksums match the
// window, or -1.
//
// The strong hash is only computed on a weak checksum hit.
func (e *Encoder) match(win *window, weak uint32) int {
	candidates := e.idx.Lookup(weak)
	if len(candidates) == 0 {
		return -1
	}

	e.hasher.Reset()
	e.hasher.Write(win.copyTo(e.scratch))
	e.digest = e.hasher.Sum(e.digest[:0])

	strong := e.digest[:e.idx.Signature().StrongHashLength]

	for _, block := range candidates {
		if bytes.Equal(strong, e.idx.BlockStrong(block)) {
			return block
		}
	}

	return -1
}

// emitter accumulates pending instruction state during an encode pass:
// at most one literal run or one copy span is pending at any time.
type emitter struct {
	emit func(Instruction) error

	literal []byte

	copyOffset uint64
	copyLength uint64
	copyValid  bool

	copyBytes    uint64
	literalBytes uint64
	emitted      int
}

func (o *emitter) send(in Instruction) error {
	o.emitted++

	if in.Kind == KindCopy {
		o.copyBytes += in.Length
	} else {
		o.literalBytes += uint64(len(in.Data))
	}

	return o.emit(in)
}

func (o *emitter) literalByte(b byte) error {
	if o.copyValid {
		if err := o.send(Copy(o.copyOffset, o.copyLength)); err != nil {
			return err
		}

		o.copyValid = false
	}

	o.literal = append(o.literal, b)

	return nil
}

func (o *emitter) copySpan(offset, length uint64) error {
	if len(o.literal) > 0 {
		if err := o.send(Literal(o.literal)); err != nil {
			return err
		}

		o.literal = nil
	}

	if o.copyValid && o.copyOffset+o.copyLength == offset {
		o.copyLength += length

		return nil
	}

	if o.copyValid {
		if err := o.send(Copy(o.copyOffset, o.copyLength)); err != nil {
			return err
		}
	}

	o.copyOffset, o.copyLength, o.copyValid = offset, length, true

	return nil
}

func (o *emitter) flush() error {
	if o.copyValid {
		o.copyValid = false

		return o.send(Copy(o.copyOffset, o.copyLength))
	}

	if len(o.literal) > 0 {
		literal := o.literal
		o.literal = nil

		return o.send(Literal(literal))
	}

	return nil
}

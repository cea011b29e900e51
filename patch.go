// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import (
	"fmt"
	"io"
	"math"
)

// Patch replays an instruction sequence against the basis, writing the
// reconstructed target stream to dst.
//
// Instructions are applied strictly in order; the output is the exact
// concatenation of their spans. A copy referencing bytes beyond basisLen
// fails with ErrOutOfRange before any byte of that instruction is written;
// on any error the bytes already written to dst should be discarded by the
// caller.
func Patch(dst io.Writer, basis io.ReaderAt, basisLen int64, instructions []Instruction) error {
	for _, in := range instructions {
		if err := apply(dst, basis, basisLen, in); err != nil {
			return err
		}
	}

	return nil
}

// PatchReader decodes a serialized delta stream and applies it against the
// basis on the fly, without materializing the instruction sequence.
func PatchReader(dst io.Writer, basis io.ReaderAt, basisLen int64, delta io.Reader) error {
	dr := NewDeltaReader(delta)

	for {
		in, err := dr.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if err = apply(dst, basis, basisLen, in); err != nil {
			return err
		}
	}
}

func apply(dst io.Writer, basis io.ReaderAt, basisLen int64, in Instruction) error {
	switch in.Kind {
	case KindLiteral:
		_, err := dst.Write(in.Data)

		return err
	case KindCopy:
		if in.Offset > math.MaxInt64 || in.Length > math.MaxInt64-in.Offset ||
			int64(in.Offset+in.Length) > basisLen {
			return fmt.Errorf("copy [%d, %d+%d) beyond basis length %d: %w",
				in.Offset, in.Offset, in.Length, basisLen, ErrOutOfRange)
		}

		_, err := io.Copy(dst, io.NewSectionReader(basis, int64(in.Offset), int64(in.Length)))

		return err
	default:
		return fmt.Errorf("unknown instruction kind %#x: %w", byte(in.Kind), ErrMalformedStream)
	}
}

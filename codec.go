// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// deltaFormatVersion is the version byte leading a serialized delta stream.
const deltaFormatVersion = 1

// DeltaWriter serializes an instruction stream into the delta wire format.
//
// The format is self-delimiting: a version byte followed by tagged records,
// so a decoder needs no framing beyond the total stream length. A copy
// record is the tag 0x00 with big-endian u64 basis offset and u64 length;
// a literal record is the tag 0x01 with a big-endian u32 length and the raw
// bytes.
type DeltaWriter struct {
	w io.Writer
}

// NewDeltaWriter creates a writer and emits the format version byte.
func NewDeltaWriter(w io.Writer) (*DeltaWriter, error) {
	if _, err := w.Write([]byte{deltaFormatVersion}); err != nil {
		return nil, err
	}

	return &DeltaWriter{w: w}, nil
}

// WriteInstruction appends one instruction record to the stream.
func (dw *DeltaWriter) WriteInstruction(in Instruction) error {
	switch in.Kind {
	case KindCopy:
		var record [17]byte

		record[0] = byte(KindCopy)
		binary.BigEndian.PutUint64(record[1:], in.Offset)
		binary.BigEndian.PutUint64(record[9:], in.Length)

		_, err := dw.w.Write(record[:])

		return err
	case KindLiteral:
		if uint64(len(in.Data)) > math.MaxUint32 {
			return fmt.Errorf("literal of %d bytes exceeds wire format limit: %w", len(in.Data), ErrInvalidConfig)
		}

		var record [5]byte

		record[0] = byte(KindLiteral)
		binary.BigEndian.PutUint32(record[1:], uint32(len(in.Data)))

		if _, err := dw.w.Write(record[:]); err != nil {
			return err
		}

		_, err := dw.w.Write(in.Data)

		return err
	default:
		return fmt.Errorf("unknown instruction kind %#x: %w", byte(in.Kind), ErrInvalidConfig)
	}
}

// WriteDelta serializes a whole instruction sequence to w.
func WriteDelta(w io.Writer, instructions []Instruction) error {
	dw, err := NewDeltaWriter(w)
	if err != nil {
		return err
	}

	for _, in := range instructions {
		if err = dw.WriteInstruction(in); err != nil {
			return err
		}
	}

	return nil
}

// DeltaReader decodes a serialized delta stream one instruction at a time.
type DeltaReader struct {
	r io.Reader

	readHeader bool
}

// NewDeltaReader creates a reader over a serialized delta stream.
func NewDeltaReader(r io.Reader) *DeltaReader {
	return &DeltaReader{r: r}
}

// Next returns the next instruction from the stream, or io.EOF after the
// last one.
//
// A truncated record, an unknown tag or an unsupported format version fail
// with ErrMalformedStream; other reader errors are returned unmodified.
func (dr *DeltaReader) Next() (Instruction, error) {
	if !dr.readHeader {
		var version [1]byte

		if _, err := io.ReadFull(dr.r, version[:]); err != nil {
			return Instruction{}, truncated("delta header", err)
		}

		if version[0] != deltaFormatVersion {
			return Instruction{}, fmt.Errorf("unsupported delta format version %d: %w", version[0], ErrMalformedStream)
		}

		dr.readHeader = true
	}

	var tag [1]byte

	if _, err := io.ReadFull(dr.r, tag[:]); err != nil {
		if err == io.EOF {
			// clean record boundary
			return Instruction{}, io.EOF
		}

		return Instruction{}, truncated("instruction tag", err)
	}

	switch InstructionKind(tag[0]) {
	case KindCopy:
		var record [16]byte

		if _, err := io.ReadFull(dr.r, record[:]); err != nil {
			return Instruction{}, truncated("copy record", err)
		}

		return Copy(binary.BigEndian.Uint64(record[:8]), binary.BigEndian.Uint64(record[8:])), nil
	case KindLiteral:
		var record [4]byte

		if _, err := io.ReadFull(dr.r, record[:]); err != nil {
			return Instruction{}, truncated("literal record", err)
		}

		data := make([]byte, binary.BigEndian.Uint32(record[:]))

		if _, err := io.ReadFull(dr.r, data); err != nil {
			return Instruction{}, truncated("literal data", err)
		}

		return Literal(data), nil
	default:
		return Instruction{}, fmt.Errorf("unknown instruction tag %#x: %w", tag[0], ErrMalformedStream)
	}
}

// ReadDelta decodes a whole serialized delta stream.
func ReadDelta(r io.Reader) ([]Instruction, error) {
	dr := NewDeltaReader(r)

	var instructions []Instruction

	for {
		in, err := dr.Next()
		if err == io.EOF {
			return instructions, nil
		}

		if err != nil {
			return nil, err
		}

		instructions = append(instructions, in)
	}
}

// truncated maps unexpected end of input to ErrMalformedStream, passing
// other reader errors through unmodified.
func truncated(what string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("truncated %s: %w", what, ErrMalformedStream)
	}

	return err
}

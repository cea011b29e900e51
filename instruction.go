// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import (
	"bytes"
	"fmt"
)

// InstructionKind is the tag of an Instruction variant.
type InstructionKind byte

// Instruction kinds, matching the wire format tags.
const (
	KindCopy    InstructionKind = 0x00
	KindLiteral InstructionKind = 0x01
)

// Instruction is the atomic unit of a delta: either a copy of a span of the
// basis stream, or a run of literal bytes.
//
// For KindCopy, Offset and Length describe the basis span, and Data is nil.
// For KindLiteral, Data holds the raw bytes, and Offset and Length are zero.
//
// Replaying an instruction sequence in order and concatenating the outputs
// reconstructs the target stream exactly.
type Instruction struct {
	Data []byte

	Offset uint64
	Length uint64

	Kind InstructionKind
}

// Copy constructs a copy instruction referencing a basis span.
func Copy(offset, length uint64) Instruction {
	return Instruction{
		Kind:   KindCopy,
		Offset: offset,
		Length: length,
	}
}

// Literal constructs a literal instruction carrying raw bytes.
func Literal(data []byte) Instruction {
	return Instruction{
		Kind: KindLiteral,
		Data: data,
	}
}

// Size returns the number of target stream bytes the instruction produces.
func (in Instruction) Size() uint64 {
	if in.Kind == KindLiteral {
		return uint64(len(in.Data))
	}

	return in.Length
}

// Equal reports whether two instructions are identical.
func (in Instruction) Equal(other Instruction) bool {
	return in.Kind == other.Kind &&
		in.Offset == other.Offset &&
		in.Length == other.Length &&
		bytes.Equal(in.Data, other.Data)
}

// String implements fmt.Stringer.
func (in Instruction) String() string {
	switch in.Kind {
	case KindCopy:
		return fmt.Sprintf("copy(%d, %d)", in.Offset, in.Length)
	case KindLiteral:
		return fmt.Sprintf("literal(%d bytes)", len(in.Data))
	default:
		return fmt.Sprintf("unknown(%#x)", byte(in.Kind))
	}
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import "errors"

// ErrInvalidConfig is returned when signature or encoder configuration is not usable,
// e.g. a zero block length or a strong hash length exceeding the native digest size.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrOutOfRange is returned when a copy instruction references a span beyond the
// end of the basis stream.
//
// It indicates a corrupt delta or a basis/delta mismatch, and is never retried.
var ErrOutOfRange = errors.New("copy out of basis range")

// ErrMalformedStream is returned when a serialized signature or delta stream can't
// be decoded: truncated record, unknown tag or unsupported format version.
var ErrMalformedStream = errors.New("malformed stream")

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package delta

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// Save writes the serialized signature to a file.
//
// The write is atomic: the data goes to a temporary file first which is then
// renamed over path. With WithCompressor the serialized payload is
// compressed before writing.
func (s *Signature) Save(path string, opts ...OptionFunc) error {
	opt, err := buildOptions(opts...)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	if _, err = s.WriteTo(&buf); err != nil {
		return err
	}

	if err = writePayload(path, buf.Bytes(), opt); err != nil {
		return err
	}

	opt.Logger.Debug("signature saved",
		zap.String("path", path),
		zap.Int("blocks", len(s.Blocks)),
		zap.Int("size", buf.Len()),
	)

	return nil
}

// LoadSignature reads a signature file written by Save.
//
// The same compressor option (or its absence) used for Save should be passed
// here; a mismatch surfaces as a decompression failure or ErrMalformedStream.
func LoadSignature(path string, opts ...OptionFunc) (*Signature, error) {
	opt, err := buildOptions(opts...)
	if err != nil {
		return nil, err
	}

	payload, err := readPayload(path, opt)
	if err != nil {
		return nil, err
	}

	sig, err := ReadSignature(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature file %q: %w", path, err)
	}

	opt.Logger.Debug("signature loaded",
		zap.String("path", path),
		zap.Int("blocks", len(sig.Blocks)),
	)

	return sig, nil
}

// SaveDelta writes a serialized instruction sequence to a file, atomically,
// compressed when WithCompressor is set.
func SaveDelta(path string, instructions []Instruction, opts ...OptionFunc) error {
	opt, err := buildOptions(opts...)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	if err = WriteDelta(&buf, instructions); err != nil {
		return err
	}

	if err = writePayload(path, buf.Bytes(), opt); err != nil {
		return err
	}

	opt.Logger.Debug("delta saved",
		zap.String("path", path),
		zap.Int("instructions", len(instructions)),
		zap.Int("size", buf.Len()),
	)

	return nil
}

// LoadDelta reads a delta file written by SaveDelta.
func LoadDelta(path string, opts ...OptionFunc) ([]Instruction, error) {
	opt, err := buildOptions(opts...)
	if err != nil {
		return nil, err
	}

	payload, err := readPayload(path, opt)
	if err != nil {
		return nil, err
	}

	instructions, err := ReadDelta(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse delta file %q: %w", path, err)
	}

	return instructions, nil
}

func writePayload(path string, payload []byte, opt Options) error {
	if opt.Compressor != nil {
		compressed, err := opt.Compressor.Compress(payload, nil)
		if err != nil {
			return fmt.Errorf("failed to compress payload: %w", err)
		}

		payload = compressed
	}

	return atomicWriteFile(path, payload, 0o644)
}

func readPayload(path string, opt Options) ([]byte, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if opt.Compressor != nil {
		payload, err = opt.Compressor.Decompress(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %q: %w", path, err)
		}
	}

	return payload, nil
}

func atomicWriteFile(path string, data []byte, mode fs.FileMode) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck

		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

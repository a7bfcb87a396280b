// Package snapshot decodes semester snapshot and results files before they
// reach the planning engine. Malformed input is rejected here.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/go-playground/validator/v10"

	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
)

// MaxDecodedBytes bounds a decompressed payload.
const MaxDecodedBytes = 64 << 20

var validate = validator.New()

// Decode reads a JSON snapshot, brotli-compressed when compressed is set.
func Decode(r io.Reader, compressed bool) (types.Snapshot, error) {
	var snap types.Snapshot
	if err := decodeJSON(r, compressed, &snap); err != nil {
		return snap, err
	}
	if err := validate.Struct(snap); err != nil {
		return snap, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}

// DecodeResults reads a JSON reconciliation input.
func DecodeResults(r io.Reader, compressed bool) (types.ReconcileInput, error) {
	return decodeResults(r, compressed, "")
}

func decodeResults(r io.Reader, compressed bool, courseName string) (types.ReconcileInput, error) {
	var in types.ReconcileInput
	if err := decodeJSON(r, compressed, &in); err != nil {
		return in, err
	}
	if courseName = strings.TrimSpace(courseName); courseName != "" {
		in.CourseName = courseName
	}
	if err := validate.Struct(in); err != nil {
		return in, fmt.Errorf("invalid results: %w", err)
	}
	return in, nil
}

// DecodeFile picks brotli decompression for files ending in ".br".
func DecodeFile(path string) (types.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Snapshot{}, err
	}
	defer f.Close()
	return Decode(f, IsCompressedName(path))
}

// DecodeResultsFile reads a results file. A non-empty courseName replaces the
// document's course name before validation.
func DecodeResultsFile(path, courseName string) (types.ReconcileInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.ReconcileInput{}, err
	}
	defer f.Close()
	return decodeResults(f, IsCompressedName(path), courseName)
}

func IsCompressedName(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".br")
}

func decodeJSON(r io.Reader, compressed bool, out any) error {
	if compressed {
		r = brotli.NewReader(r)
	}
	dec := json.NewDecoder(io.LimitReader(r, MaxDecodedBytes))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

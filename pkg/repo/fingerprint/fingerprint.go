// Package fingerprint tracks whether the on-disk search index is stale with
// respect to its source TOC file, persisting a small JSON sidecar next to
// the index.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// SchemaVersion is bumped whenever the on-disk index schema changes in a way
// that requires a full rebuild regardless of source fingerprint.
const SchemaVersion = 1

// Fingerprint is the current state of the source TOC: a content digest plus
// the help root's last-modified time.
type Fingerprint struct {
	Digest string
	Mtime  int64
}

// Stored is the sidecar record persisted alongside the search index.
type Stored struct {
	SchemaVersion int    `json:"schema_version"`
	SourceDigest  string `json:"source_digest"`
	SourceMtime   int64  `json:"source_mtime"`
	BuiltAt       int64  `json:"built_at"`
}

// Compute hashes the TOC file bytes and reads the help root's mtime.
func Compute(tocPath, helpRoot string) (Fingerprint, error) {
	tocBytes, err := os.ReadFile(tocPath)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to read toc file: %w", err)
	}

	info, err := os.Stat(helpRoot)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to stat help root: %w", err)
	}

	sum := sha256.Sum256(tocBytes)

	return Fingerprint{
		Digest: hex.EncodeToString(sum[:]),
		Mtime:  info.ModTime().Unix(),
	}, nil
}

// Matches reports whether s reflects the same source state as f and was
// built under the current schema version.
func (s Stored) Matches(f Fingerprint) bool {
	return s.SchemaVersion == SchemaVersion && s.SourceDigest == f.Digest && s.SourceMtime == f.Mtime
}

// Load reads a sidecar file. A missing file is not an error: it is reported
// as (nil, nil) so callers treat "never built" the same as "stale".
func Load(path string) (*Stored, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil //nolint:nilnil // absent sidecar means "never built", not a failure
		}

		return nil, fmt.Errorf("failed to read fingerprint sidecar: %w", err)
	}

	var stored Stored

	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse fingerprint sidecar: %w", err)
	}

	return &stored, nil
}

// Save writes the sidecar file, overwriting any existing one. It is called
// as the last step of a rebuild so a crash mid-build is retried on next
// startup rather than silently trusted.
func Save(path string, s Stored) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprint sidecar: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write fingerprint sidecar: %w", err)
	}

	return nil
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const metadataSuffix = ".meta.json"

// Metadata is the JSON sidecar stored next to each artifact. Checksum and
// CreatedAt are stamped by the store; producers may add arbitrary fields.
type Metadata struct {
	Checksum  string            `json:"checksum,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Store manages per-collection artifact files under a base directory.
// Every artifact is identified by (collection, kind); the kind doubles as
// the file base name.
type Store struct {
	baseDir string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an artifact store rooted at baseDir, creating the
// directory if needed.
func NewStore(baseDir string, opts ...Option) (*Store, error) {
	if baseDir == "" {
		return nil, ErrBaseDirRequired
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact base dir: %w", err)
	}

	s := &Store{
		baseDir: baseDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string { return s.baseDir }

// Dir returns the collection's artifact directory, creating it on demand.
func (s *Store) Dir(collection string) (string, error) {
	if collection == "" {
		return "", ErrCollectionRequired
	}
	dir := filepath.Join(s.baseDir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create collection dir: %w", err)
	}
	return dir, nil
}

// PathFor resolves the canonical path for an artifact of the given kind,
// creating the collection directory on demand. ext includes the dot and
// may be empty for directory-shaped artifacts.
func (s *Store) PathFor(collection, kind, ext string) (string, error) {
	if kind == "" {
		return "", ErrKindRequired
	}
	dir, err := s.Dir(collection)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, kind+ext), nil
}

// SaveMetadata writes the artifact's JSON sidecar. The checksum of the
// artifact file is computed here so a fresh write+save cycle always
// verifies clean.
func (s *Store) SaveMetadata(collection, kind, artifactPath string, extra map[string]string) error {
	dir, err := s.Dir(collection)
	if err != nil {
		return err
	}

	meta := Metadata{
		CreatedAt: time.Now().UTC(),
		Extra:     extra,
	}
	if artifactPath != "" {
		sum, err := s.Checksum(artifactPath)
		if err != nil {
			return fmt.Errorf("checksum %s: %w", artifactPath, err)
		}
		meta.Checksum = sum
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	sidecar := filepath.Join(dir, kind+metadataSuffix)
	if err := os.WriteFile(sidecar, data, 0o644); err != nil {
		return fmt.Errorf("write metadata sidecar: %w", err)
	}
	return nil
}

// GetMetadata reads the artifact's JSON sidecar.
// Returns ErrMetadataNotFound when no sidecar exists.
func (s *Store) GetMetadata(collection, kind string) (*Metadata, error) {
	sidecar := filepath.Join(s.baseDir, collection, kind+metadataSuffix)
	data, err := os.ReadFile(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrMetadataNotFound, collection, kind)
		}
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata sidecar: %w", err)
	}
	return &meta, nil
}

// Checksum streams the file through SHA-256 and returns the hex digest.
func (s *Store) Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyIntegrity recomputes the artifact's checksum and compares it to
// the stored sidecar. It fails closed: no metadata, no matching file, or
// a checksum mismatch all return false.
func (s *Store) VerifyIntegrity(collection, kind string) bool {
	meta, err := s.GetMetadata(collection, kind)
	if err != nil {
		s.logger.Warn("integrity check: no metadata", "collection", collection, "kind", kind, "err", err)
		return false
	}

	path, ok := s.findArtifact(collection, kind)
	if !ok {
		s.logger.Warn("integrity check: artifact file missing", "collection", collection, "kind", kind)
		return false
	}

	sum, err := s.Checksum(path)
	if err != nil {
		s.logger.Warn("integrity check: checksum failed", "collection", collection, "kind", kind, "err", err)
		return false
	}

	if sum != meta.Checksum {
		s.logger.Warn("integrity check: checksum mismatch",
			"collection", collection, "kind", kind, "want", meta.Checksum, "got", sum)
		return false
	}
	return true
}

// findArtifact locates the artifact file for a kind: a file whose name is
// the kind itself or kind plus an extension, excluding the sidecar.
func (s *Store) findArtifact(collection, kind string) (string, bool) {
	dir := filepath.Join(s.baseDir, collection)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, metadataSuffix) {
			continue
		}
		if name == kind || strings.TrimSuffix(name, filepath.Ext(name)) == kind {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

// StorageUsage walks the collection directory and returns total bytes and
// file count.
func (s *Store) StorageUsage(collection string) (int64, int, error) {
	dir := filepath.Join(s.baseDir, collection)

	var bytes int64
	var files int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		bytes += info.Size()
		files++
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return bytes, files, nil
}

// ListArtifacts enumerates artifact base names in the collection
// directory, stripping extensions and excluding metadata sidecars.
func (s *Store) ListArtifacts(collection string) ([]string, error) {
	dir := filepath.Join(s.baseDir, collection)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, metadataSuffix) {
			continue
		}
		base := name
		if !e.IsDir() {
			base = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if base == "" || seen[base] {
			continue
		}
		seen[base] = true
		names = append(names, base)
	}
	return names, nil
}

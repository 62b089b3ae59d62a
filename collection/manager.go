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


package collection

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/core"
)

// manifestName is the per-collection state file under the base directory.
const manifestName = "collection_manifest.json"

// Manager is the registry of known collections. State is held in memory
// and persisted as one JSON manifest per collection under
// <baseDir>/<name>/collection_manifest.json.
type Manager struct {
	baseDir   string
	artifacts *artifact.Store
	logger    *slog.Logger

	mu          sync.RWMutex
	collections map[string]*core.Collection
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager rooted at baseDir and loads every
// collection manifest found there. Malformed manifests are skipped with
// a warning rather than failing the whole load.
func NewManager(baseDir string, artifacts *artifact.Store, opts ...Option) (*Manager, error) {
	if baseDir == "" {
		return nil, ErrBaseDirRequired
	}

	m := &Manager{
		baseDir:     baseDir,
		artifacts:   artifacts,
		logger:      slog.Default().With("component", "collection-manager"),
		collections: make(map[string]*core.Collection),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return fmt.Errorf("reading base directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(m.baseDir, entry.Name(), manifestName)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var coll core.Collection
		if err := json.Unmarshal(data, &coll); err != nil {
			m.logger.Warn("skipping malformed collection manifest", "path", path, "err", err)
			continue
		}
		if coll.Name == "" {
			coll.Name = entry.Name()
		}
		m.collections[coll.Name] = &coll
	}

	m.logger.Debug("loaded collections", "count", len(m.collections))
	return nil
}

// Create registers a new collection with the given configuration. It is
// idempotent: creating a collection that already exists returns the
// existing one untouched.
func (m *Manager) Create(name string, cfg core.CollectionConfig) (*core.Collection, error) {
	if name == "" {
		return nil, core.ErrEmptyCollectionName
	}
	if err := core.ValidateCollectionConfig(&cfg); err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.collections[name]; ok {
		m.logger.Debug("collection already exists", "name", name)
		return cloneCollection(existing), nil
	}

	now := time.Now().UTC()
	coll := &core.Collection{
		Name:      name,
		Config:    cfg,
		Status:    core.CollectionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.persist(coll); err != nil {
		return nil, err
	}

	m.collections[name] = coll
	m.logger.Info("created collection", "name", name, "processor", cfg.Processor)
	return cloneCollection(coll), nil
}

// Get returns the named collection.
func (m *Manager) Get(name string) (*core.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return cloneCollection(coll), nil
}

// List returns all registered collections sorted by name.
func (m *Manager) List() []*core.Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*core.Collection, 0, len(m.collections))
	for _, coll := range m.collections {
		out = append(out, cloneCollection(coll))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateStatus transitions the collection to the given status. An empty
// errMsg clears any previous error message.
func (m *Manager) UpdateStatus(name string, status core.CollectionStatus, errMsg string) error {
	if err := core.ValidateCollectionStatus(status); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	coll.Status = status
	coll.ErrorMessage = errMsg
	coll.UpdatedAt = time.Now().UTC()
	return m.persist(coll)
}

// SetDocumentCount records how many documents the collection holds after
// a pipeline run.
func (m *Manager) SetDocumentCount(name string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	coll.DocumentCount = count
	coll.UpdatedAt = time.Now().UTC()
	return m.persist(coll)
}

// Delete unregisters the collection and removes its manifest. Artifacts
// produced by pipeline runs are left in place for the caller to clean up.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	path := filepath.Join(m.baseDir, name, manifestName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing manifest for %s: %w", name, err)
	}

	delete(m.collections, name)
	m.logger.Info("deleted collection", "name", name)
	return nil
}

// persist writes the collection manifest. Callers hold m.mu.
func (m *Manager) persist(coll *core.Collection) error {
	dir := filepath.Join(m.baseDir, coll.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", coll.Name, err)
	}

	data, err := json.MarshalIndent(coll, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest for %s: %w", coll.Name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest for %s: %w", coll.Name, err)
	}
	return nil
}

func cloneCollection(coll *core.Collection) *core.Collection {
	out := *coll
	return &out
}

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


package health

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/collection"
	"github.com/poiesic/corpora/config"
	"github.com/poiesic/corpora/core"
)

// minFreeBytes is the default free-space floor for the storage probe;
// below it the deployment is degraded, not unhealthy, since existing
// artifacts stay readable.
const minFreeBytes = 100 << 20

// Status is the aggregate health of a deployment.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ExitCode maps a status to a process exit code: 0 healthy, 2 degraded,
// 1 unhealthy.
func (s Status) ExitCode() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 2
	default:
		return 1
	}
}

// Check is the outcome of one probe.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report aggregates all probe outcomes; Status is the worst of them.
type Report struct {
	Status Status  `json:"status"`
	Checks []Check `json:"checks"`
}

// Checker probes a deployment. ConfigPath and Manager are optional;
// their checks are skipped when unset.
type Checker struct {
	dataDir    string
	configPath string
	manager    *collection.Manager
	artifacts  *artifact.Store
	minFree    uint64
	logger     *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithConfigPath enables the configuration readability check.
func WithConfigPath(path string) Option {
	return func(c *Checker) {
		c.configPath = path
	}
}

// WithManager enables the per-collection artifact checks.
func WithManager(manager *collection.Manager) Option {
	return func(c *Checker) {
		c.manager = manager
	}
}

// WithMinFreeBytes overrides the free-space floor of the storage probe.
func WithMinFreeBytes(n uint64) Option {
	return func(c *Checker) {
		c.minFree = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChecker creates a checker for the given data directory.
func NewChecker(dataDir string, artifacts *artifact.Store, opts ...Option) *Checker {
	c := &Checker{
		dataDir:   dataDir,
		artifacts: artifacts,
		minFree:   minFreeBytes,
		logger:    slog.Default().With("component", "health"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes all configured probes and aggregates them.
func (c *Checker) Run() *Report {
	report := &Report{Status: StatusHealthy}

	report.add(c.checkStorage())
	if c.configPath != "" {
		report.add(c.checkConfig())
	}
	if c.manager != nil {
		report.add(c.checkCollections())
	}
	return report
}

func (r *Report) add(check Check) {
	r.Checks = append(r.Checks, check)

	switch check.Status {
	case StatusUnhealthy:
		r.Status = StatusUnhealthy
	case StatusDegraded:
		if r.Status == StatusHealthy {
			r.Status = StatusDegraded
		}
	}
}

// checkStorage verifies the data directory exists, accepts writes, and
// has free space left.
func (c *Checker) checkStorage() Check {
	check := Check{Name: "storage", Status: StatusHealthy}

	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		check.Status = StatusUnhealthy
		check.Detail = fmt.Sprintf("data directory not usable: %v", err)
		return check
	}

	probe := filepath.Join(c.dataDir, ".health_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		check.Status = StatusUnhealthy
		check.Detail = fmt.Sprintf("data directory not writable: %v", err)
		return check
	}
	if err := os.Remove(probe); err != nil {
		c.logger.Warn("failed to remove health probe file", "err", err)
	}

	free, err := freeBytes(c.dataDir)
	if err != nil {
		c.logger.Warn("failed to read free space", "dir", c.dataDir, "err", err)
	} else if free < c.minFree {
		check.Status = StatusDegraded
		check.Detail = fmt.Sprintf("low free space: %d bytes available", free)
		return check
	}

	check.Detail = c.dataDir
	return check
}

// freeBytes reports the space available to unprivileged writes on the
// filesystem holding path.
func freeBytes(path string) (uint64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, err
	}
	return fs.Bavail * uint64(fs.Bsize), nil
}

// checkConfig verifies the collections config loads.
func (c *Checker) checkConfig() Check {
	check := Check{Name: "config", Status: StatusHealthy}

	entries, err := config.Load(c.configPath, c.logger)
	if err != nil {
		check.Status = StatusUnhealthy
		check.Detail = fmt.Sprintf("config not readable: %v", err)
		return check
	}
	if len(entries) == 0 {
		check.Status = StatusDegraded
		check.Detail = "config contains no usable collections"
		return check
	}

	check.Detail = fmt.Sprintf("%d collections configured", len(entries))
	return check
}

// checkCollections verifies that completed collections still have intact
// artifacts. A failed collection degrades the deployment but does not
// make it unhealthy: other collections keep working.
func (c *Checker) checkCollections() Check {
	check := Check{Name: "collections", Status: StatusHealthy}

	degraded := 0
	for _, coll := range c.manager.List() {
		switch coll.Status {
		case core.CollectionStatusFailed:
			degraded++
			c.logger.Warn("collection in failed state", "collection", coll.Name, "err", coll.ErrorMessage)
		case core.CollectionStatusCompleted:
			if c.artifacts != nil && !c.artifacts.VerifyIntegrity(coll.Name, artifact.KindEmbeddings) {
				degraded++
				c.logger.Warn("embeddings artifact failed integrity check", "collection", coll.Name)
			}
		}
	}

	if degraded > 0 {
		check.Status = StatusDegraded
		check.Detail = fmt.Sprintf("%d collections need attention", degraded)
	}
	return check
}

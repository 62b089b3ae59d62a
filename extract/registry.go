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


package extract

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Registry dispatches source files to processors. It is constructed once
// at startup and read-only afterwards; concurrent lookups are safe.
type Registry struct {
	byExt   map[string]Processor
	ordered []Processor
	logger  *slog.Logger
}

// NewRegistry builds a registry over the given processors. Registration
// order matters: when an extension lookup fails, processors are asked
// CanProcess in the order they were registered. When two processors claim
// the same extension, the first registered wins.
func NewRegistry(logger *slog.Logger, processors ...Processor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		byExt:   make(map[string]Processor),
		ordered: make([]Processor, 0, len(processors)),
		logger:  logger,
	}
	for _, p := range processors {
		r.ordered = append(r.ordered, p)
		for _, ext := range p.SupportedFormats() {
			ext = strings.ToLower(ext)
			if _, taken := r.byExt[ext]; taken {
				logger.Warn("extension already registered", "ext", ext, "processor", p.Name())
				continue
			}
			r.byExt[ext] = p
		}
	}
	return r
}

// NewDefaultRegistry builds a registry with the built-in processors.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	return NewRegistry(logger,
		NewCSVProcessor(logger),
		NewJSONLProcessor(logger),
		NewTextProcessor(logger),
	)
}

// Get returns the processor for a source file, or ok=false when none
// matches. Absence of a processor is not an error here; the ingestion
// stage decides whether that is fatal.
func (r *Registry) Get(path string) (Processor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if p, ok := r.byExt[ext]; ok && p.CanProcess(path) {
		return p, true
	}

	for _, p := range r.ordered {
		if p.CanProcess(path) {
			return p, true
		}
	}

	return nil, false
}

// Lookup returns the processor registered under a format tag, or ok=false.
func (r *Registry) Lookup(name string) (Processor, bool) {
	for _, p := range r.ordered {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Names returns the format tags of all registered processors in
// registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, p := range r.ordered {
		names[i] = p.Name()
	}
	return names
}

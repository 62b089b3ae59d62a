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


package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/corpora/core"
	"gopkg.in/yaml.v3"
)

// Entry is one named collection in the config file.
type Entry struct {
	Name   string
	Config core.CollectionConfig
}

// entryYAML is the on-disk shape of a collection entry. Enabled defaults
// to true when omitted, and schema_mapping accepts both scalar and list
// content plus list and mapping metadata forms.
type entryYAML struct {
	Name           string            `yaml:"name"`
	SourceFiles    []string          `yaml:"source_files"`
	Processor      string            `yaml:"processor"`
	SchemaMapping  schemaMappingYAML `yaml:"schema_mapping"`
	EmbeddingModel string            `yaml:"embedding_model"`
	ChunkSize      int               `yaml:"chunk_size"`
	ChunkOverlap   int               `yaml:"chunk_overlap"`
	Delimiter      string            `yaml:"delimiter"`
	Encoding       string            `yaml:"encoding"`
	Metadata       map[string]string `yaml:"metadata"`
	Enabled        *bool             `yaml:"enabled"`
}

type fileYAML struct {
	Collections []yaml.Node `yaml:"collections"`
}

// schemaMappingYAML accepts the flexible schema_mapping forms:
//
//	content: verse              # scalar
//	content: [verse, notes]     # list
//	metadata: [author]          # list: source column kept under its own name
//	metadata: {author: writer}  # mapping: source column -> metadata key
type schemaMappingYAML struct {
	Content  []string
	Metadata map[string]string
}

func (m *schemaMappingYAML) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Content  yaml.Node `yaml:"content"`
		Metadata yaml.Node `yaml:"metadata"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if !raw.Content.IsZero() {
		switch raw.Content.Kind {
		case yaml.ScalarNode:
			var s string
			if err := raw.Content.Decode(&s); err != nil {
				return err
			}
			m.Content = []string{s}
		case yaml.SequenceNode:
			if err := raw.Content.Decode(&m.Content); err != nil {
				return err
			}
		default:
			return fmt.Errorf("content mapping must be a string or a list")
		}
	}

	if !raw.Metadata.IsZero() {
		switch raw.Metadata.Kind {
		case yaml.SequenceNode:
			var cols []string
			if err := raw.Metadata.Decode(&cols); err != nil {
				return err
			}
			m.Metadata = make(map[string]string, len(cols))
			for _, c := range cols {
				m.Metadata[c] = c
			}
		case yaml.MappingNode:
			if err := raw.Metadata.Decode(&m.Metadata); err != nil {
				return err
			}
		default:
			return fmt.Errorf("metadata mapping must be a list or a mapping")
		}
	}

	return nil
}

// Load reads the collections config file. Source file paths get ${ENV}
// substitution. Individually malformed entries are skipped and logged
// rather than failing the whole file; entries that parse but fail
// validation are returned as-is so callers can report the problems (see
// Validate).
func Load(path string, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var file fileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(file.Collections))
	for i, node := range file.Collections {
		var raw entryYAML
		if err := node.Decode(&raw); err != nil {
			logger.Warn("skipping malformed collection entry", "file", path, "index", i, "err", err)
			continue
		}

		enabled := true
		if raw.Enabled != nil {
			enabled = *raw.Enabled
		}

		sources := make([]string, len(raw.SourceFiles))
		for j, src := range raw.SourceFiles {
			sources[j] = os.ExpandEnv(src)
		}

		entries = append(entries, Entry{
			Name: raw.Name,
			Config: core.CollectionConfig{
				SourceFiles: sources,
				Processor:   raw.Processor,
				SchemaMapping: core.SchemaMapping{
					Content:  raw.SchemaMapping.Content,
					Metadata: raw.SchemaMapping.Metadata,
				},
				EmbeddingModel: raw.EmbeddingModel,
				ChunkSize:      raw.ChunkSize,
				ChunkOverlap:   raw.ChunkOverlap,
				Delimiter:      raw.Delimiter,
				Encoding:       raw.Encoding,
				Metadata:       raw.Metadata,
				Enabled:        enabled,
			},
		})
	}

	return entries, nil
}

// Validate reports the problems with a config entry without mutating it.
// knownProcessors lists the format tags the registry can dispatch; an
// empty list skips the processor-tag check.
func Validate(entry Entry, knownProcessors []string) []string {
	var problems []string

	if entry.Name == "" {
		problems = append(problems, "collection name is missing")
	}
	if len(entry.Config.SourceFiles) == 0 {
		problems = append(problems, "no source files configured")
	}
	for _, src := range entry.Config.SourceFiles {
		if _, err := os.Stat(src); err != nil {
			problems = append(problems, "source file not found: "+src)
		}
	}
	if len(entry.Config.SchemaMapping.Content) == 0 {
		problems = append(problems, "schema mapping has no content field")
	}
	if entry.Config.Processor != "" && len(knownProcessors) > 0 {
		known := false
		for _, name := range knownProcessors {
			if name == entry.Config.Processor {
				known = true
				break
			}
		}
		if !known {
			problems = append(problems, "unknown processor tag: "+entry.Config.Processor)
		}
	}

	return problems
}

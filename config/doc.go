// Package config loads the declarative collections file that describes
// which source files belong to each collection and how they are mapped
// into documents.
package config

// Package health checks whether a corpora deployment is able to do its
// job: storage must be writable, configuration readable, and completed
// collections must have intact artifacts. The aggregate status maps to a
// process exit code for use in liveness scripts.
package health

// Package collection manages the registry of document collections: their
// configuration, lifecycle status, and on-disk persistence. The manager is
// the single writer of collection state; pipeline runs mutate status and
// document counts through it.
package collection

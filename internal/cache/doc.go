// Package cache memoizes long-form story analysis in valkey, keyed by the
// sha256 of the normalized story text. With caching disabled the wrapper is
// a pass-through.
package cache

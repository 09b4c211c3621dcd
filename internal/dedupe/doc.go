// Package dedupe provides event deduplication using a time-based cache
// to prevent processing duplicate input events within a configurable window.
package dedupe

// Package cache keeps the text extracted from fetched pages so a page read
// twice is downloaded once. It has an in-memory LRU level (L1) and an
// optional zstd-compressed disk level (L2) that survives restarts.
package cache

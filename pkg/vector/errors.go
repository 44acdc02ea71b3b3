package vector

import "errors"

var (
	// ErrIndexLoad is returned when a directory does not contain a valid
	// index. Distinct from "brain does not exist", which is decided by the
	// caller from durable storage.
	ErrIndexLoad = errors.New("index load failed")

	// ErrIndexBuild is returned when a bulk initial build fails.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexWrite is returned when a single-chunk upsert fails.
	ErrIndexWrite = errors.New("index write failed")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")
)

package upload

// Metrics receives observations about upload sessions. A nil Metrics on the
// manager config disables collection.
//
// Implementations must be safe for concurrent use.
type Metrics interface {
	// SessionStarted records a new session. native is true when the backend
	// carries the chunks in its own resumable session.
	SessionStarted(chunked, native bool)

	// ChunkUploaded records bytes accepted into a session.
	ChunkUploaded(bytes int64)

	// SessionEnded records a terminal state, "committed" or "aborted".
	SessionEnded(state string)
}

// noopMetrics is the zero-overhead stand-in used when no Metrics is set.
type noopMetrics struct{}

func (noopMetrics) SessionStarted(chunked, native bool) {}
func (noopMetrics) ChunkUploaded(bytes int64)           {}
func (noopMetrics) SessionEnded(state string)           {}

package models

// StreamResponse is one chunk of a streamed completion.
type StreamResponse struct {
	Content string
	Err     error
	Done    bool
}

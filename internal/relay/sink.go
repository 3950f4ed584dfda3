package relay

// Sink is the push-style delivery interface between the executor and its
// caller. The actual HTTP/SSE framing is the caller's concern.
type Sink interface {
	// Chunk delivers one piece of the response body. For streamed
	// responses this is one upstream event; for unary responses it is
	// called once with the full body.
	Chunk(data []byte) error
	// Done signals successful completion.
	Done()
	// Fail signals a terminal failure. Only called when no retry will
	// follow.
	Fail(f *Failure)
}

package radio

// Backend opens decode/playback handles. Open must not block on network I/O;
// connection and decoding happen behind the handle.
type Backend interface {
	Open(url string, volume int) (Handle, error)
}

// Handle controls one decoding stream. It is owned by exactly one session.
type Handle interface {
	// SetVolume sets the playback volume, 0..100.
	SetVolume(volume int) error
	// PollFailed reports whether the stream failed since the last call.
	PollFailed() bool
	// Stop releases the stream. It is safe to call more than once.
	Stop()
}

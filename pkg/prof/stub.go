//go:build !profile

package prof

// Enabled reports whether profiling was compiled in.
const Enabled = false

// ErrActive is never returned when built without the "profile" tag.
var ErrActive error

// Session is an inert profile session.
type Session struct{}

// Start is a no-op when built without the "profile" tag.
func Start(_ Config) (*Session, error) {
	return &Session{}, nil
}

// Stop is a no-op when built without the "profile" tag.
func (*Session) Stop() error {
	return nil
}

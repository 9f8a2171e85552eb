package prof

// Config names the output file for each profile. Empty paths are skipped.
type Config struct {
	CPU   string // streamed for the whole session
	Heap  string
	Block string
	Mutex string
}

// IsZero reports whether no profile was requested.
func (c Config) IsZero() bool {
	return c == Config{}
}

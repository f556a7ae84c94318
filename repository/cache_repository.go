package repository

// CacheRepository stores computed results keyed by cashflow fingerprint.
// A miss and a backend error look the same to callers: both recompute.
type CacheRepository interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// NoCache never hits and discards writes.
type NoCache struct{}

func (NoCache) Get(string) (string, bool) { return "", false }

func (NoCache) Set(string, string) error { return nil }

package store

// Hooks are lightweight callbacks for high-signal store events.
// Implementations MUST be cheap and non-blocking; the store calls them on
// read and write paths.
type Hooks interface {
	// A single entry was deleted on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// A bulk entry was deleted on read and the keys fell back to singles.
	// reason ∈ {"corrupt", "value_decode"}
	BulkRejected(namespace string, requested int, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string, isBulk bool)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) BulkRejected(string, int, string) {}
func (NopHooks) ProviderSetRejected(string, bool) {}

const (
	reasonCorrupt     = "corrupt"
	reasonValueDecode = "value_decode"
)

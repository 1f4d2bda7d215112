package driven

// ConfigStore persists application configuration as key/value pairs.
// Keys use dot notation ("embedding.model") regardless of how the
// backing format nests them.
type ConfigStore interface {
	// Get retrieves a raw configuration value.
	Get(key string) (any, bool)

	// GetString retrieves a string value. Returns "" if unset or not a string.
	GetString(key string) string

	// GetInt retrieves an integer value. Returns 0 if unset or not numeric.
	GetInt(key string) int

	// GetFloat retrieves a float value. Returns 0 if unset or not numeric.
	GetFloat(key string) float64

	// GetBool retrieves a boolean value. Returns false if unset.
	GetBool(key string) bool

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Load re-reads configuration from the backing store.
	Load() error

	// Path returns the location of the backing store, for display.
	Path() string
}

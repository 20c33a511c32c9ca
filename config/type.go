package config

import "context"

// ConfigSource is one layer of configuration data.
//
// Load must be safe for concurrent use and return data the caller may keep;
// nested maps express hierarchy. Watch is optional: a source that cannot
// watch returns nil without doing anything. A source that can watch must not
// block; it signals changes on ch until ctx is done and never closes ch.
type ConfigSource interface {
	Load(ctx context.Context) (map[string]any, error)
	Watch(ctx context.Context, ch chan<- Event) error
	// Name identifies the source in errors and logs, e.g. "file", "env", "cli".
	Name() string
}

// Event is a configuration change notification.
type Event struct {
	// ChangedKeys lists the top-level keys whose values differ, using the
	// `config` tag name: a changed Preferences.ConfirmExit yields ["preferences"].
	ChangedKeys []string

	OldConfig any
	NewConfig any
}

// Changed reports whether key is among the changed keys.
func (e Event) Changed(key string) bool {
	for _, k := range e.ChangedKeys {
		if k == key {
			return true
		}
	}
	return false
}

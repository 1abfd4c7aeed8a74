package config

// Watcher publishes configuration reloads. GetCurrentConfig always returns
// the last valid config; Subscribe channels are closed by Close.
type Watcher interface {
	GetCurrentConfig() *Config
	Subscribe() <-chan *Config
	Close() error
}

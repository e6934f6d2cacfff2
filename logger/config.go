package logger

// Config log configuration
type Config struct {
	Level string `json:"level"` // log level: debug, info, warn, error (default: info)
}

// SetDefaults sets default values
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

package server

import (
	"errors"
	"fmt"
	"time"
)

// Config holds everything needed to construct a Server.
type Config struct {
	Addr string
	Port int

	// MemBytes bounds the total wire-frame bytes the store may hold. A
	// message that arrives when the store is empty is stored even if its
	// own frame is larger, so the total can then exceed MemBytes.
	MemBytes int

	// CurrentTime, when set, fixes the server's notion of "now" to a
	// constant instant and unlocks the __exit__ and __memory__ control
	// payloads. It exists for testability; production servers leave it
	// nil and use the wall clock.
	CurrentTime *time.Time
}

// DefaultConfig returns the server's out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{
		Addr:     "127.0.0.1",
		Port:     8765,
		MemBytes: 128,
	}
}

// Validate reports a descriptive error if cfg cannot be used to start a
// server.
func Validate(cfg Config) error {
	if cfg.Addr == "" {
		return errors.New("addr is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if cfg.MemBytes <= 0 {
		return errors.New("mem must be > 0")
	}
	return nil
}

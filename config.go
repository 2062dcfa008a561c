package hooks

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the static initial-registration document read at startup. It
// is an ordered list of hook names mapped to deferred references;
// immediate functions cannot be expressed statically.
//
//	hooks:
//	  - event: mail.outgoing
//	    callbacks:
//	      - target: sanitizer
//	        member: ScrubMail
//	        arity: 1
//	  - event: app.started
//	    callbacks:
//	      - target: demo
//	        member: Announce
//	        arity: 0
type Config struct {
	Hooks []ConfigBinding `yaml:"hooks"`
}

// ConfigBinding is one hook entry in a Config document.
type ConfigBinding struct {
	Event     string           `yaml:"event"`
	Callbacks []ConfigCallback `yaml:"callbacks"`
}

// ConfigCallback is a deferred reference in a Config document.
type ConfigCallback struct {
	Target string `yaml:"target"`
	Member string `yaml:"member"`
	Arity  int    `yaml:"arity"`
}

// ParseConfig decodes a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse hooks config: %w", err)
	}
	return &cfg, nil
}

// Bindings converts the document into the bulk-registration form,
// preserving document order.
func (c *Config) Bindings() []Binding {
	bindings := make([]Binding, 0, len(c.Hooks))
	for _, h := range c.Hooks {
		callbacks := make([]Callback, 0, len(h.Callbacks))
		for _, cb := range h.Callbacks {
			callbacks = append(callbacks, Deferred(cb.Target, cb.Member, cb.Arity))
		}
		bindings = append(bindings, Binding{Event: h.Event, Callbacks: callbacks})
	}
	return bindings
}

// LoadConfig parses a YAML document and applies it exactly as
// RegisterBatch would: entries in order, non-atomic on failure, failures
// reported through the log and metrics side channel.
//
// A document that fails to parse is returned as an error; nothing is
// registered from it.
func (s *Service) LoadConfig(data []byte) error {
	cfg, err := ParseConfig(data)
	if err != nil {
		return err
	}

	bindings := cfg.Bindings()
	s.logger.Debug("applying static hook configuration", "bindings", len(bindings))
	return s.RegisterBatch(bindings)
}

// LoadConfigFile reads path and applies it with LoadConfig.
func (s *Service) LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read hooks config: %w", err)
	}
	if err := s.LoadConfig(data); err != nil {
		return fmt.Errorf("load hooks config %s: %w", path, err)
	}
	return nil
}

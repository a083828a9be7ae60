package config

import (
	"strings"
	"sync"
)

// Switch is a key a section is declared to recognize.
type Switch struct {
	Section string
	Key     string
	// Flag marks a boolean switch that may be given bare on the command line.
	Flag bool
}

// Switches is the declared surface of recognized keys. Declaring a switch
// never injects a value; it lets the command-line and environment sources map
// a bare key name to its section.
type Switches struct {
	mu    sync.RWMutex
	list  []Switch
	byKey map[string]Switch
}

func NewSwitches() *Switches {
	return &Switches{byKey: make(map[string]Switch)}
}

// Add declares that section expects key. The first section to declare a key
// owns its bare name.
func (s *Switches) Add(section, key string) {
	s.add(Switch{Section: section, Key: key})
}

// AddFlag declares a boolean key.
func (s *Switches) AddFlag(section, key string) {
	s.add(Switch{Section: section, Key: key, Flag: true})
}

func (s *Switches) add(sw Switch) {
	section, key := sw.Section, sw.Key
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.list {
		if strings.EqualFold(have.Section, section) && strings.EqualFold(have.Key, key) {
			return
		}
	}
	s.list = append(s.list, sw)
	if _, taken := s.byKey[norm(key)]; !taken {
		s.byKey[norm(key)] = sw
	}
}

// SectionFor returns the section owning a bare key name.
func (s *Switches) SectionFor(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sw, ok := s.byKey[norm(key)]
	return sw.Section, ok
}

// IsFlag reports whether the bare key name belongs to a boolean switch.
func (s *Switches) IsFlag(key string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[norm(key)].Flag
}

func (s *Switches) All() []Switch {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Switch(nil), s.list...)
}

func norm(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Personal.AI order the ending

package config

import (
	"errors"
	"strings"
	"sync"
)

// ErrAliasesFrozen is returned when adding to a table that has been frozen.
var ErrAliasesFrozen = errors.New("alias table is frozen")

// AliasTable maps human-friendly literals to booleans. Tokens are case-sensitive.
type AliasTable struct {
	mu     sync.RWMutex
	tokens map[string]bool
	frozen bool
}

func NewAliasTable() *AliasTable {
	return &AliasTable{tokens: make(map[string]bool)}
}

// Aliases is the single process-wide table consulted by boolean lookups.
var Aliases = NewAliasTable()

var populateOnce sync.Once

var standardAliases = map[string]bool{
	"On": true, "Off": false,
	"True": true, "False": false,
	"Yes": true, "No": false,
}

// PopulateAliases installs the standard literals into Aliases and freezes it.
// Calls after the first are no-ops.
func PopulateAliases() *AliasTable {
	populateOnce.Do(func() {
		for tok, v := range standardAliases {
			_ = Aliases.Add(tok, v)
		}
		Aliases.Freeze()
	})
	return Aliases
}

func (t *AliasTable) Add(token string, v bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return ErrAliasesFrozen
	}
	t.tokens[token] = v
	return nil
}

func (t *AliasTable) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

func (t *AliasTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tokens)
}

// IsToken reports whether raw reads as a boolean: an alias, a standard
// literal or a case-insensitive "true"/"false".
func (t *AliasTable) IsToken(raw string) bool {
	raw = strings.TrimSpace(raw)
	if _, ok := standardAliases[raw]; ok {
		return true
	}
	if strings.EqualFold(raw, "true") || strings.EqualFold(raw, "false") {
		return true
	}
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tokens[raw]
	return ok
}

// AsBool interprets raw as a boolean. An exact alias match wins, then a
// case-insensitive "true"/"false", otherwise def. It never fails.
func (t *AliasTable) AsBool(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if t != nil {
		t.mu.RLock()
		v, ok := t.tokens[raw]
		t.mu.RUnlock()
		if ok {
			return v
		}
	}
	switch {
	case strings.EqualFold(raw, "true"):
		return true
	case strings.EqualFold(raw, "false"):
		return false
	}
	return def
}

// Personal.AI order the ending

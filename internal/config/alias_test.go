package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateAliases_StandardLiterals(t *testing.T) {
	table := PopulateAliases()

	cases := map[string]bool{
		"On": true, "Off": false,
		"True": true, "False": false,
		"Yes": true, "No": false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, table.AsBool(raw, !want), raw)
	}
	assert.Same(t, table, PopulateAliases(), "second call must return the same table")
	assert.ErrorIs(t, table.Add("Maybe", true), ErrAliasesFrozen)
}

func TestAliasTable_CaseSensitiveWithNativeFallback(t *testing.T) {
	table := NewAliasTable()
	require.NoError(t, table.Add("On", true))
	require.NoError(t, table.Add("Off", false))

	assert.True(t, table.AsBool("On", false))
	// "on" is not an alias and not a native boolean
	assert.False(t, table.AsBool("on", false))
	assert.True(t, table.AsBool("on", true))

	assert.True(t, table.AsBool("TRUE", false))
	assert.False(t, table.AsBool("false", true))
	assert.True(t, table.AsBool(" true ", false))
}

func TestAliasTable_UnrecognizedReturnsDefault(t *testing.T) {
	table := PopulateAliases()
	for _, raw := range []string{"", "yes please", "1", "enabled", "yes"} {
		assert.True(t, table.AsBool(raw, true), raw)
		assert.False(t, table.AsBool(raw, false), raw)
	}
}

func TestAliasTable_NilTable(t *testing.T) {
	var table *AliasTable
	assert.True(t, table.AsBool("True", false))
	assert.False(t, table.AsBool("Yes", false))
}

// Personal.AI order the ending

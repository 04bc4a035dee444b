package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapScanAndAccessors(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"daysBeforeAfter": 3, "absenceDays": "14", "anniversaryType": "membership", "empty": ""}`)))

	n, ok := m.Int("daysBeforeAfter")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = m.Int("absenceDays")
	assert.True(t, ok)
	assert.Equal(t, 14, n)

	_, ok = m.Int("missing")
	assert.False(t, ok)

	assert.Equal(t, "membership", m.String("anniversaryType"))
	assert.True(t, m.Has("daysBeforeAfter"))
	assert.False(t, m.Has("empty"))
	assert.False(t, m.Has("missing"))
}

func TestJSONMapIntRejectsPartialNumbers(t *testing.T) {
	m := JSONMap{"mixed": "3abc", "fraction": 3.7, "whole": 4.0, "negative": "-2", "spaced": " 5"}

	for _, key := range []string{"mixed", "fraction", "spaced"} {
		_, ok := m.Int(key)
		assert.False(t, ok, key)
	}

	n, ok := m.Int("whole")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	n, ok = m.Int("negative")
	assert.True(t, ok)
	assert.Equal(t, -2, n)
}

func TestJSONMapScanNull(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestStringListValue(t *testing.T) {
	var l StringList
	v, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	require.NoError(t, l.Scan(`["choir","youth"]`))
	assert.Equal(t, StringList{"choir", "youth"}, l)
}

package aijson

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_FencedBlock(t *testing.T) {
	var out map[string]int
	err := Unmarshal("```json\n{\"a\":1}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out["a"])
}

func TestUnmarshal_BraceSpanInProse(t *testing.T) {
	var out map[string]int
	err := Unmarshal("prefix {\"a\":1} suffix", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out["a"])
}

func TestUnmarshal_BareObject(t *testing.T) {
	var out map[string]int
	err := Unmarshal("{\"a\":1}", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out["a"])
}

func TestUnmarshal_NotJSON(t *testing.T) {
	var out map[string]int
	err := Unmarshal("not json", &out)
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestExtract_PrefersFencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n{\"fenced\": true}\n```\nand also {\"loose\": true}"
	raw, err := Extract(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fenced": true}`, raw)
}

func TestExtract_FallsThroughBrokenFence(t *testing.T) {
	// The fenced content is not valid JSON, so the brace span wins.
	text := "```json\nnope\n```\nresult: {\"a\": 2}"
	raw, err := Extract(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 2}`, raw)
}

func TestExtract_MultilineObject(t *testing.T) {
	text := "The answer is:\n{\n  \"recipes\": [\n    {\"name\": \"Toast\"}\n  ]\n}\nEnjoy!"
	raw, err := Extract(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipes":[{"name":"Toast"}]}`, raw)
}

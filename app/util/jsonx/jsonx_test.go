package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Likes []string `json:"likes"`
}

func TestDecodePlainObject(t *testing.T) {
	var out payload
	ok := Decode(`{"name": "Sam", "likes": ["sushi"]}`, &out)

	require.True(t, ok)
	assert.Equal(t, "Sam", out.Name)
	assert.Equal(t, []string{"sushi"}, out.Likes)
}

func TestDecodeProseWrappedObject(t *testing.T) {
	raw := `Sure! Here is the extracted info:

{"name": "Alex", "likes": []}

Let me know if you need anything else.`

	var out payload
	ok := Decode(raw, &out)

	require.True(t, ok)
	assert.Equal(t, "Alex", out.Name)
}

func TestDecodeFencedObject(t *testing.T) {
	raw := "```json\n{\"name\": \"Kim\"}\n```"

	var out payload
	ok := Decode(raw, &out)

	require.True(t, ok)
	assert.Equal(t, "Kim", out.Name)
}

func TestDecodeNoObject(t *testing.T) {
	var out payload
	assert.False(t, Decode("just some chit-chat, no structure here", &out))
}

func TestDecodeMalformedObject(t *testing.T) {
	var out payload
	assert.False(t, Decode(`{"name": "Sam", "likes": [`+"..."+`}`, &out))
}

func TestDecodeNullFields(t *testing.T) {
	var out payload
	ok := Decode(`{"name": "Sam", "likes": null}`, &out)

	require.True(t, ok)
	assert.Equal(t, "Sam", out.Name)
	assert.Nil(t, out.Likes)
}

func TestObjectBoundaries(t *testing.T) {
	obj, ok := Object(`prefix {"a": {"b": 1}} suffix`)

	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, obj)
}

func TestCleanStripsFenceAndTag(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, Clean("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, Clean(`{"a": 1}`))
}

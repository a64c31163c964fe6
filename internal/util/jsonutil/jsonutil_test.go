package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"code": "a < b && c > d"})
	require.NoError(t, err)
	assert.Equal(t, `{"code":"a < b && c > d"}`, string(out))
}

func TestUnmarshalFlex(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, UnmarshalFlex([]byte(`{"a":1}`), &v))
	assert.Equal(t, 1, v.A)

	require.NoError(t, UnmarshalFlex([]byte(`"{\"a\":2}"`), &v))
	assert.Equal(t, 2, v.A)

	assert.Error(t, UnmarshalFlex([]byte(`nope`), &v))
}

func TestExtractJSON(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "  [1,2]  ", want: `[1,2]`},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```\n[]\n```", want: `[]`},
		{in: "Here you go: {\"a\":1} hope it helps", want: `{"a":1}`},
	}
	for _, tc := range cases {
		assert.JSONEq(t, tc.want, string(ExtractJSON(tc.in)), tc.in)
	}
	assert.Nil(t, ExtractJSON(""))
	assert.Nil(t, ExtractJSON("no json here"))
	assert.Nil(t, ExtractJSON("{broken"))
}

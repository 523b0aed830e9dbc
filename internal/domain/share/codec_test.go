package share

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	codec := NewCodec("http://localhost:5173/", 1<<16)

	tests := []struct {
		name string
		code string
	}{
		{name: "snippet", code: `const greet = (n: string) => "hi " + n;` + "\nconsole.log(greet(\"x\"));\n"},
		{name: "unicode", code: "console.log('héllo 世界 🎉')"},
		{name: "repetitive", code: strings.Repeat("console.log(1);\n", 500)},
		{name: "empty", code: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param, err := codec.Encode(tt.code)
			require.NoError(t, err)
			assert.Empty(t, strings.Trim(param, uriAlphabet))
			assert.Equal(t, tt.code, codec.Decode(param))

			// '+' decoded to a space by a lenient query parser
			assert.Equal(t, tt.code, codec.Decode(strings.ReplaceAll(param, "+", " ")))
		})
	}
}

func TestEncodeCompresses(t *testing.T) {
	codec := NewCodec("", 0)
	code := strings.Repeat("console.log('hello');\n", 200)

	param, err := codec.Encode(code)
	require.NoError(t, err)
	assert.Less(t, len(param), len(code)/4)
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	_, err := NewCodec("", 0).Encode("\xff")
	assert.Error(t, err)
}

func TestEncodeTooLarge(t *testing.T) {
	codec := NewCodec("", 10)

	_, err := codec.Encode(strings.Repeat("x", 11))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeMalformed(t *testing.T) {
	codec := NewCodec("", 1<<16)

	for _, param := range []string{"", "   ", "!!!not-lz!!!", "abc_def", "a/b", "%E2%82%AC"} {
		assert.Equal(t, "", codec.Decode(param), "param %q", param)
	}
}

func TestDecodeSizeLimit(t *testing.T) {
	big := NewCodec("", 0)
	param, err := big.Encode(strings.Repeat("a", 1000))
	require.NoError(t, err)

	assert.Equal(t, "", NewCodec("", 100).Decode(param))
	assert.Len(t, big.Decode(param), 1000)
}

func TestURL(t *testing.T) {
	codec := NewCodec("https://play.example.com/repl?theme=dark", 0)

	param, err := codec.Encode("console.log(1)")
	require.NoError(t, err)

	link, err := codec.URL(param)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://play.example.com/repl?"))
	assert.Contains(t, link, "theme=dark")
	assert.Equal(t, "console.log(1)", codec.FromURL(link))

	empty, err := codec.URL("")
	require.NoError(t, err)
	assert.Equal(t, "https://play.example.com/repl?theme=dark", empty)

	_, err = NewCodec("://bad", 0).URL(param)
	assert.Error(t, err)
	assert.Equal(t, "", codec.FromURL("://bad"))
}

package curl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Example(t *testing.T) {
	got := Get("https://x/y", WithHeaders(map[string]string{"B": "2", "A": "1"}))
	assert.Equal(t, "curl -X GET -H 'A: 1' -H 'B: 2' --compressed -L https://x/y", got)
}

func TestCommand_Deterministic(t *testing.T) {
	a := NewRequest("GET", "https://example.com/a?b=c",
		WithHeader("Zeta", "z"), WithHeader("Alpha", "a"), WithHeader("Mid", "m"))
	b := NewRequest("GET", "https://example.com/a?b=c",
		WithHeader("Mid", "m"), WithHeader("Alpha", "a"), WithHeader("Zeta", "z"))

	for i := 0; i < 20; i++ {
		require.Equal(t, Command(a), Command(b))
	}
	assert.Equal(t,
		"curl -X GET -H 'Alpha: a' -H 'Mid: m' -H 'Zeta: z' --compressed -L 'https://example.com/a?b=c'",
		Command(a))
}

func TestCommand_FlagOrder(t *testing.T) {
	req := NewRequest("put", "https://h/p",
		WithBody([]byte(`{"k":"v"}`)),
		WithVerify(false),
		WithOutput("/tmp/out file"),
	)
	assert.Equal(t,
		`curl -X PUT -d '{"k":"v"}' --compressed --insecure -L https://h/p -o '/tmp/out file'`,
		Command(req))
}

func TestCommand_NoOptionalFlags(t *testing.T) {
	req := NewRequest("GET", "https://h/p", WithCompressed(false), WithRedirects(false))
	assert.Equal(t, "curl -X GET https://h/p", Command(req))
}

func TestHead_NoRedirectsByDefault(t *testing.T) {
	assert.Equal(t, "curl -X HEAD --compressed https://h/p", Head("https://h/p"))
	assert.Equal(t, "curl -X HEAD --compressed -L https://h/p", Head("https://h/p", WithRedirects(true)))
}

func TestPost_JSONBody(t *testing.T) {
	got, err := Post("https://h/q", map[string]any{"flags": 512},
		WithHeader("Content-Type", "application/json"))
	require.NoError(t, err)
	assert.Equal(t,
		`curl -X POST -H 'Content-Type: application/json' -d '{"flags":512}' --compressed -L https://h/q`,
		got)

	_, err = Post("https://h/q", func() {})
	assert.Error(t, err)
}

func TestWithOutputDir(t *testing.T) {
	got := Get("https://h/releases/download/v1/cpptools-linux.vsix", WithOutputDir("/tmp/vem"))
	assert.Equal(t,
		"curl -X GET --compressed -L https://h/releases/download/v1/cpptools-linux.vsix -o /tmp/vem/cpptools-linux.vsix",
		got)
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInherit(t *testing.T) {
	primary := ConnectionSpec{Hostname: "target", Username: "alice", Port: 2222, Password: "secret"}

	tests := []struct {
		name    string
		gateway ConnectionSpec
		want    ConnectionSpec
	}{
		{
			name:    "all fields unset",
			gateway: ConnectionSpec{Hostname: "jump"},
			want:    ConnectionSpec{Hostname: "jump", Username: "alice", Port: 2222, Password: "secret"},
		},
		{
			name:    "own values win",
			gateway: ConnectionSpec{Hostname: "jump", Username: "bob", Port: 22, Password: "pw"},
			want:    ConnectionSpec{Hostname: "jump", Username: "bob", Port: 22, Password: "pw"},
		},
		{
			name:    "partial",
			gateway: ConnectionSpec{Hostname: "jump", Username: "bob"},
			want:    ConnectionSpec{Hostname: "jump", Username: "bob", Port: 2222, Password: "secret"},
		},
		{
			name:    "hostname is never inherited",
			gateway: ConnectionSpec{},
			want:    ConnectionSpec{Username: "alice", Port: 2222, Password: "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.gateway.Inherit(primary)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInheritDoesNotMutate(t *testing.T) {
	gw := ConnectionSpec{Hostname: "jump"}
	_ = gw.Inherit(ConnectionSpec{Hostname: "target", Username: "alice"})
	assert.Empty(t, gw.Username)
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		input string
		want  ConnectionSpec
	}{
		{"host", ConnectionSpec{Hostname: "host"}},
		{"host:2200", ConnectionSpec{Hostname: "host", Port: 2200}},
		{"bob@host", ConnectionSpec{Hostname: "host", Username: "bob"}},
		{"bob:pw@10.0.0.1:22", ConnectionSpec{Hostname: "10.0.0.1", Username: "bob", Password: "pw", Port: 22}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConnectionString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseConnectionString("bad host")
	assert.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	spec := ConnectionSpec{Hostname: "host", Username: "bob"}.WithDefaults()
	assert.Equal(t, DefaultPort, spec.Port)
	assert.Equal(t, "bob", spec.Username)
	assert.Equal(t, "bob@host:22", spec.String())
}

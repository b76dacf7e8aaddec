package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingStat(string) (os.FileInfo, error) { return nil, os.ErrNotExist }

func TestDisplayNameFromFilesystem(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "src", "my-app")
	require.NoError(t, os.MkdirAll(dir, 0755))

	r := NewNameResolver()
	assert.Equal(t, "my-app", r.DisplayName(encode(dir)))
}

func TestDisplayNameFallback(t *testing.T) {
	r := &NameResolver{home: "/home/me", stat: missingStat, names: map[string]string{}}

	tests := []struct {
		folder string
		want   string
	}{
		{"-home-me-code-proj", "code-proj"},
		{"-opt-service", "opt-service"},
		{"-home-me", "home-me"},
		{"plain", "plain"},
		{"---", "---"},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			assert.Equal(t, tt.want, r.DisplayName(tt.folder))
		})
	}
}

func TestRememberOverridesDecoding(t *testing.T) {
	r := &NameResolver{home: "/home/me", stat: missingStat, names: map[string]string{}}
	assert.Equal(t, "code-my-app", r.DisplayName("-home-me-code-my-app"))

	r.Remember("-home-me-code-my-app", "/home/me/code/my-app/")
	assert.Equal(t, "my-app", r.DisplayName("-home-me-code-my-app"))

	r.Remember("", "/x")
	r.Remember("f", "")
	assert.Equal(t, "f", r.DisplayName("f"))
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "-Users-me-src-app-v2", encode("/Users/me/src/app.v2"))
	assert.Equal(t, "", encode(""))
}

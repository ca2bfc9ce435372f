package fetch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardPath(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"a", filepath.Join("1", "a")},
		{"ab", filepath.Join("2", "ab")},
		{"abc", filepath.Join("3", "a", "abc")},
		{"abcd", filepath.Join("ab", "cd", "abcd")},
		{"busybox-ndk", filepath.Join("bu", "sy", "busybox-ndk")},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShardPath(tt.id), tt.id)
	}
}

func TestVersionFromFilename(t *testing.T) {
	assert.Equal(t, "1.36.1", versionFromFilename("busybox", "busybox-1.36.1.zip"))
	assert.Equal(t, "2.0", versionFromFilename("mod", "mod-2.0.tar.gz"))
	assert.Equal(t, "", versionFromFilename("busybox", "other-1.0.zip"))
	assert.Equal(t, "", versionFromFilename("busybox", "busybox-.zip"))
}

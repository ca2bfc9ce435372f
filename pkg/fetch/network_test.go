package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateURLs(t *testing.T) {
	urls := candidateURLs("https://example.com/mods/", "busybox", "1.36.1")
	require.Len(t, urls, 6)

	// Pattern order outranks extension order; trailing slash is trimmed.
	assert.Equal(t, "https://example.com/mods/busybox-1.36.1.zip", urls[0])
	assert.Equal(t, "https://example.com/mods/busybox-1.36.1.tar.gz", urls[1])
	assert.Equal(t, "https://example.com/mods/releases/download/1.36.1/busybox-1.36.1.zip", urls[2])
	assert.Equal(t, "https://example.com/mods/raw/main/busybox-1.36.1.zip", urls[4])
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://example.com"))
	assert.True(t, isURL("http://example.com"))
	assert.False(t, isURL("/srv/repo"))
	assert.False(t, isURL("ftp://example.com"))
}

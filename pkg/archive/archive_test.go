package archive_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kam-pm/kam/pkg/archive"
	"github.com/kam-pm/kam/pkg/errors"
)

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func makeTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"module-1.0.zip", ".zip"},
		{"module-1.0.tar.gz", ".tar.gz"},
		{"module-1.0.TAR.GZ", ".tar.gz"},
		{"module-1.0.tar", ".tar"},
		{"module-1.0.rar", ".rar"},
		{"module", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, archive.Ext(tt.name), tt.name)
	}
}

func TestIsFetchFormat(t *testing.T) {
	assert.True(t, archive.IsFetchFormat("m-1.zip"))
	assert.True(t, archive.IsFetchFormat("m-1.tar.gz"))
	assert.False(t, archive.IsFetchFormat("m-1.tar"))
	assert.False(t, archive.IsFetchFormat("m-1.7z"))
}

func TestExtractZip(t *testing.T) {
	data := makeZip(t, map[string]string{
		"module.prop":        "id=demo\n",
		"system/bin/demo.sh": "#!/system/bin/sh\n",
	})

	dest := t.TempDir()
	require.NoError(t, archive.Extract(data, "demo-1.0.0.zip", dest))

	prop, err := os.ReadFile(filepath.Join(dest, "module.prop"))
	require.NoError(t, err)
	assert.Equal(t, "id=demo\n", string(prop))

	_, err = os.Stat(filepath.Join(dest, "system", "bin", "demo.sh"))
	assert.NoError(t, err)
}

func TestExtractTarGz(t *testing.T) {
	data := makeTarGz(t, map[string]string{
		"module.prop": "id=demo\n",
		"service.sh":  "exit 0\n",
	})

	dest := t.TempDir()
	require.NoError(t, archive.Extract(data, "demo-1.0.0.tar.gz", dest))

	_, err := os.Stat(filepath.Join(dest, "service.sh"))
	assert.NoError(t, err)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	err := archive.Extract([]byte("junk"), "demo-1.0.0.rar", t.TempDir())
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedFormat))
}

func TestExtractCorruptArchive(t *testing.T) {
	err := archive.Extract([]byte("this is not a zip"), "demo.zip", t.TempDir())
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedFormat))

	err = archive.Extract([]byte("this is not gzip"), "demo.tar.gz", t.TempDir())
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedFormat))
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	data := makeTarGz(t, map[string]string{
		"../escape.txt": "bad\n",
		"inside.txt":    "good\n",
	})

	dest := t.TempDir()
	require.NoError(t, archive.Extract(data, "demo.tar.gz", dest))

	_, err := os.Stat(filepath.Join(dest, "inside.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractWithTransform(t *testing.T) {
	data := makeTarGz(t, map[string]string{
		"{{id}}/module.prop": "id={{id}}\nname={{name}}\n",
	})

	sub := func(s string) string {
		s = strings.ReplaceAll(s, "{{id}}", "demo")
		return strings.ReplaceAll(s, "{{name}}", "Demo Module")
	}

	dest := t.TempDir()
	err := archive.ExtractWith(data, "tmpl.tar.gz", dest, archive.Transform{
		Path:    sub,
		Content: func(b []byte) []byte { return []byte(sub(string(b))) },
	})
	require.NoError(t, err)

	prop, err := os.ReadFile(filepath.Join(dest, "demo", "module.prop"))
	require.NoError(t, err)
	assert.Equal(t, "id=demo\nname=Demo Module\n", string(prop))
}

package host_test

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/host"
)

func TestDiskFilesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.json")
	files := host.DiskFiles{}

	assert.False(t, files.Exists(path))
	require.NoError(t, files.WriteJSON(path, map[string]string{"token": "abc"}))
	assert.True(t, files.Exists(path))
	assert.False(t, files.Exists(path+".tmp"))

	var got map[string]string
	require.NoError(t, files.ReadJSON(path, &got))
	assert.Equal(t, "abc", got["token"])
}

func TestDiskFilesNullOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	files := host.DiskFiles{}
	require.NoError(t, files.WriteJSON(path, map[string]string{"token": "abc"}))
	require.NoError(t, files.WriteJSON(path, nil))

	var got map[string]string
	require.NoError(t, files.ReadJSON(path, &got))
	assert.Nil(t, got)
}

func TestDiskFilesConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")
	files := host.DiskFiles{}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- files.WriteJSON(path, map[string]string{
				"token": strings.Repeat("x", 1+i*512),
				"id":    fmt.Sprint(i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var got map[string]string
	require.NoError(t, files.ReadJSON(path, &got))
	assert.Len(t, got["token"], 1+cast.ToInt(got["id"])*512)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

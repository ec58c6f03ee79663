package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/gprofiler-go/internal/errkind"
)

func TestReadExternal_NoPath(t *testing.T) {
	m, err := ReadExternal("")
	require.NoError(t, err)
	assert.Empty(t, m.Static)
	assert.Empty(t, m.Application)
}

func TestReadExternal_ParsesStaticAndApplication(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "external.json")
	content := `{"static": {"env": "prod"}, "application": {"123": {"team": "infra"}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := ReadExternal(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", m.Static["env"])
	assert.Equal(t, "infra", m.Application[123]["team"])
}

func TestReadExternal_StaleFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "external.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))

	_, err := ReadExternal(path)
	assert.ErrorIs(t, err, errkind.ExternalMetadataStale)
}

func TestProfileMetadata_MergePrefersOther(t *testing.T) {
	base := ProfileMetadata{"a": "1", "b": "2"}
	override := ProfileMetadata{"b": "3", "c": "4"}
	merged := base.Merge(override)
	assert.Equal(t, "1", merged["a"])
	assert.Equal(t, "3", merged["b"])
	assert.Equal(t, "4", merged["c"])
}

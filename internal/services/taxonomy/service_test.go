package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestNewService_Defaults(t *testing.T) {
	svc, err := NewService("", arbor.NewLogger())
	require.NoError(t, err)

	assert.Len(t, svc.Categories(), 20)
	assert.True(t, svc.Contains("Food & Cooking"))
	assert.True(t, svc.Contains("DIY/How-to"))
	assert.False(t, svc.Contains("Gardening"))
}

func TestNewService_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	content := `
categories:
  - Cooking
  - Woodworking
  - Cooking
  - ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	svc, err := NewService(path, arbor.NewLogger())
	require.NoError(t, err)

	// Duplicates and empty entries are dropped
	assert.Equal(t, []string{"Cooking", "Woodworking"}, svc.Categories())
}

func TestNewService_FileErrors(t *testing.T) {
	logger := arbor.NewLogger()

	_, err := NewService(filepath.Join(t.TempDir(), "missing.yaml"), logger)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories: []\n"), 0644))
	_, err = NewService(empty, logger)
	assert.Error(t, err)
}

func TestCategoriesReturnsCopy(t *testing.T) {
	svc, err := NewService("", arbor.NewLogger())
	require.NoError(t, err)

	got := svc.Categories()
	got[0] = "mutated"
	assert.Equal(t, "Education", svc.Categories()[0])
}

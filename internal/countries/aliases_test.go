package countries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuiltin(t *testing.T) {
	a := Default()
	assert.Equal(t, "United States", a.Resolve("USA"))
	assert.Equal(t, "Dem. Rep. Congo", a.Resolve("Democratic Republic of Congo"))
	assert.Equal(t, "France", a.Resolve("France"))
}

func TestResolveNil(t *testing.T) {
	var a *Aliases
	assert.Equal(t, "USA", a.Resolve("USA"))
	assert.Equal(t, 0, a.Len())
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	doc := "aliases:\n  USA: United States of America\n  Kosovo: Kosovo\n  \"\": ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "United States of America", a.Resolve("USA"))
	assert.Equal(t, "Kosovo", a.Resolve("Kosovo"))
	assert.Equal(t, Default().Len()+1, a.Len())
}

func TestLoadEmptyPath(t *testing.T) {
	a, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, Default().Len(), a.Len())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	a := Default()
	assert.Error(t, a.Merge([]byte("aliases: [unterminated")))
}

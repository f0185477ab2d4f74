package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExtension(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadExtensions(t *testing.T) {
	path := writeExtension(t, `
tables: {
	passkey: {
		fields: {
			userId:       {type: "string", index: true}
			credentialID: {type: "string", unique: true}
			counter:      {type: "number"}
			name:         {type: "string", optional: true}
		}
		compound: [{name: "userId_credentialID", fields: ["userId", "credentialID"]}]
	}
}
`)

	tables, err := LoadExtensions(path)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	pk := tables[0]
	assert.Equal(t, "passkey", pk.Name)
	require.Len(t, pk.Fields, 4)

	// Declaration order is preserved.
	assert.Equal(t, "userId", pk.Fields[0].Name)
	assert.True(t, pk.Fields[0].Indexed)

	assert.Equal(t, "credentialID", pk.Fields[1].Name)
	assert.True(t, pk.Fields[1].Unique)
	assert.True(t, pk.Fields[1].Indexed, "unique implies indexed")

	assert.Equal(t, TypeNumber, pk.Fields[2].Type)
	assert.True(t, pk.Fields[3].Optional)

	require.Len(t, pk.Compound, 1)
	assert.Equal(t, []string{"userId", "credentialID"}, pk.Compound[0].Fields)
}

func TestLoadExtensionsMergesIntoDefault(t *testing.T) {
	path := writeExtension(t, `
tables: {
	apiKey: {
		fields: {
			key:    {type: "string", unique: true}
			userId: {type: "string", index: true}
		}
	}
}
`)

	tables, err := LoadExtensions(path)
	require.NoError(t, err)

	s, err := Default().WithTables(tables)
	require.NoError(t, err)
	assert.True(t, s.Has("apiKey"))
	assert.True(t, s.IsUniqueField("apiKey", "key"))
}

func TestLoadExtensionsMissingFile(t *testing.T) {
	_, err := LoadExtensions(filepath.Join(t.TempDir(), "absent.cue"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
}

func TestLoadExtensionsMissingTables(t *testing.T) {
	path := writeExtension(t, `something: {else: true}`)
	_, err := LoadExtensions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tables")
}

func TestLoadExtensionsMissingFieldType(t *testing.T) {
	path := writeExtension(t, `
tables: {
	broken: {
		fields: {
			x: {index: true}
		}
	}
}
`)
	_, err := LoadExtensions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")
}

func TestLoadExtensionsBadSyntax(t *testing.T) {
	path := writeExtension(t, `tables: {{{`)
	_, err := LoadExtensions(path)
	require.Error(t, err)
}

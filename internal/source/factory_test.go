package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomcost/internal/config"
)

func TestCSVOptions(t *testing.T) {
	opt := CSVOptions(config.Options{
		"comma":      ";",
		"strict":     true,
		"header_map": map[string]any{"Desc": "Description", "skip": 1},
	})
	assert.Equal(t, ';', opt.Comma)
	assert.True(t, opt.Strict)
	assert.Equal(t, map[string]string{"Desc": "Description"}, opt.HeaderMap)

	def := CSVOptions(config.Options{})
	assert.Equal(t, ',', def.Comma)
	assert.False(t, def.Strict)
	assert.Nil(t, def.HeaderMap)
}

func TestFromConfig_DirWithOptionsAndCache(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "PRICE LIST.csv"), []byte("Desc;Unit Price\nPLYWOOD;5\n"), 0o644))

	a := config.Default()
	a.Source.Kind = "dir"
	a.Source.Dir.Path = root
	a.Source.Cache.TTL = config.Duration(time.Minute)
	a.Source.Options = config.Options{"comma": ";", "header_map": map[string]any{"Desc": "Description"}}

	r, err := FromConfig(a, nil)
	require.NoError(t, err)
	_, cached := r.(*Cached)
	assert.True(t, cached)

	tbl, err := r.Read(context.Background(), "PRICE LIST", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"Description", "Unit Price"}, tbl.Columns)
	assert.Equal(t, "PLYWOOD", tbl.Rows[0]["Description"])
}

func TestFromConfig_Kinds(t *testing.T) {
	a := config.Default()
	a.Source.Cache.TTL = 0

	a.Source.Kind = "sheets"
	r, err := FromConfig(a, nil)
	require.NoError(t, err)
	assert.IsType(t, &Sheets{}, r)

	a.Source.Kind = "workbook"
	r, err = FromConfig(a, nil)
	require.NoError(t, err)
	assert.IsType(t, &Workbook{}, r)

	a.Source.Kind = "ftp"
	_, err = FromConfig(a, nil)
	assert.ErrorContains(t, err, "unsupported source.kind=ftp")
}

func TestDatasetNames(t *testing.T) {
	a := config.Default()
	assert.Equal(t, []string{
		"DATA BOM",
		"ORDER BY FABRIC",
		"ORDER BY O.M",
		"ORDER BY SPONGE",
		"ORDER BY WOOD",
		"ORDER LIST",
		"PRICE LIST",
	}, DatasetNames(a))
}

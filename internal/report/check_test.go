package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomcost/pkg/records"
)

func TestCheckDatasets(t *testing.T) {
	t.Parallel()
	fabric := records.Table{
		Name:    "ORDER BY FABRIC",
		Columns: []string{"PI NUMBER", "MATERIAL FABRIC 1", "FABRIC 1", "MATERIAL FABRIC 2"},
	}
	e := newEngine(woodSheet, fabric, orderList, bomSheet, priceList)

	got, err := e.CheckDatasets(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 7)

	byName := map[string]DatasetCheck{}
	for _, c := range got {
		byName[c.Dataset] = c
	}

	wood := byName["ORDER BY WOOD"]
	assert.True(t, wood.OK())
	assert.Equal(t, "WOOD", wood.Family)
	assert.Equal(t, 3, wood.Rows)
	require.Len(t, wood.Schemas, 1)
	assert.Len(t, wood.Schemas[0].Slots, 2)

	sponge := byName["ORDER BY SPONGE"]
	assert.False(t, sponge.OK())
	assert.Contains(t, sponge.Error, "unknown dataset")

	fab := byName["ORDER BY FABRIC"]
	assert.False(t, fab.OK())
	assert.Contains(t, fab.Error, "FABRIC")
	assert.Equal(t, []string{"QTY"}, fab.Missing)

	b := byName["DATA BOM"]
	assert.True(t, b.OK())
	require.Len(t, b.Schemas, 2)
	assert.Equal(t, "WOOD", b.Schemas[0].Prefix)
	assert.Equal(t, "FABRIC", b.Schemas[1].Prefix)

	assert.True(t, byName["ORDER LIST"].OK())
	assert.True(t, byName["PRICE LIST"].OK())
}

func TestCheckDatasets_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine().CheckDatasets(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer_PairsByPosition(t *testing.T) {
	cols := []string{
		"TIMESTAMP", "PI NUMBER", "QTY",
		"MATERIAL WOOD 1", "WOOD 1",
		"MATERIAL WOOD 2", "WOOD 2",
		"MATERIAL FABRIC 1", "FABRIC 1",
	}

	fs, err := Infer("WOOD", cols)
	require.NoError(t, err)
	assert.Equal(t, "WOOD", fs.Prefix)
	assert.Equal(t, []Slot{
		{NameColumn: "MATERIAL WOOD 1", UsageColumn: "WOOD 1"},
		{NameColumn: "MATERIAL WOOD 2", UsageColumn: "WOOD 2"},
	}, fs.Slots)
}

func TestInfer_CaseInsensitiveHeaders(t *testing.T) {
	fs, err := Infer("sponge", []string{"Material Sponge A", "Sponge A"})
	require.NoError(t, err)
	require.Len(t, fs.Slots, 1)
	assert.Equal(t, "Material Sponge A", fs.Slots[0].NameColumn)
	assert.Equal(t, "Sponge A", fs.Slots[0].UsageColumn)
}

func TestInfer_OtherMaterialPrefix(t *testing.T) {
	fs, err := Infer("O.M", []string{"MATERIAL O.M 1", "O.M 1", "MATERIAL O.M 2", "O.M 2"})
	require.NoError(t, err)
	assert.Len(t, fs.Slots, 2)
}

func TestInfer_MismatchIsSurfaced(t *testing.T) {
	_, err := Infer("WOOD", []string{"MATERIAL WOOD 1", "WOOD 1", "MATERIAL WOOD 2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSlotMismatch))

	var me *MismatchError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{"MATERIAL WOOD 1", "MATERIAL WOOD 2"}, me.NameColumns)
	assert.Equal(t, []string{"WOOD 1"}, me.UsageColumns)
}

func TestInfer_RejectsRepeatedColumns(t *testing.T) {
	cols := []string{"PI NUMBER", "QTY", "MATERIAL WOOD", "WOOD", "MATERIAL WOOD", "WOOD"}

	_, err := Infer("WOOD", cols)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
	assert.ErrorIs(t, err, ErrSlotMismatch)

	var de *DuplicateError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []string{"MATERIAL WOOD", "WOOD"}, de.Columns)

	fs, err := Infer("WOOD", []string{"PI NUMBER", "QTY", "MATERIAL WOOD", "WOOD", "MATERIAL WOOD.1", "WOOD.1"})
	require.NoError(t, err)
	assert.Equal(t, []Slot{
		{NameColumn: "MATERIAL WOOD", UsageColumn: "WOOD"},
		{NameColumn: "MATERIAL WOOD.1", UsageColumn: "WOOD.1"},
	}, fs.Slots)
}

func TestInfer_NoSlots(t *testing.T) {
	_, err := Infer("WOOD", []string{"TIMESTAMP", "QTY"})
	assert.ErrorIs(t, err, ErrNoSlots)
}

func TestNew_RejectsBadSlots(t *testing.T) {
	_, err := New("", []Slot{{NameColumn: "a", UsageColumn: "b"}})
	assert.Error(t, err)

	_, err = New("WOOD", nil)
	assert.ErrorIs(t, err, ErrNoSlots)

	_, err = New("WOOD", []Slot{{NameColumn: "a", UsageColumn: ""}})
	assert.Error(t, err)

	_, err = New("WOOD", []Slot{
		{NameColumn: "a", UsageColumn: "b"},
		{NameColumn: "a", UsageColumn: "c"},
	})
	assert.ErrorContains(t, err, "used twice")
}

func TestResolve(t *testing.T) {
	cols := []string{"NAME A", "USE A", "MATERIAL WOOD 1", "WOOD 1"}

	explicit := FamilySchema{Prefix: "WOOD", Slots: []Slot{{NameColumn: "NAME A", UsageColumn: "USE A"}}}
	fs, err := Resolve(explicit, cols)
	require.NoError(t, err)
	assert.Equal(t, "NAME A", fs.Slots[0].NameColumn)

	fs, err = Resolve(FamilySchema{Prefix: "WOOD"}, cols)
	require.NoError(t, err)
	assert.Equal(t, "MATERIAL WOOD 1", fs.Slots[0].NameColumn)

	missing := FamilySchema{Prefix: "WOOD", Slots: []Slot{{NameColumn: "NAME B", UsageColumn: "USE A"}}}
	_, err = Resolve(missing, cols)
	assert.ErrorContains(t, err, "NAME B")

	_, err = Resolve(explicit, append(cols, "USE A"))
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mstcli/pkg/contracts/domain"
)

const sampleExport = `Ligand Concentration [M];Fluorescence Before [counts];Fluorescence After [counts];Relative Fluorescence 650nm;Relative Fluorescence 670nm
1e-9;1000;950;800;820
1e-8;1000;900;810;850
`

func writeExport(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sampleExport), 0644))
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "wt_rep1.csv")

	table, err := readTable(filepath.Join(dir, "wt_rep1.csv"), ";")
	require.NoError(t, err)

	assert.Equal(t, "wt_rep1.csv", table.Name)
	require.Len(t, table.Columns, 5)
	assert.Equal(t, "Ligand Concentration [M]", table.Columns[0])
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "1e-9", table.Rows[0][0])
}

func TestReadTable_MultiByteSeparator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.csv")
	content := "Ligand Concentration [M]；Fluorescence Before [counts]\n1e-9；1000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := readTable(path, "；")
	require.NoError(t, err)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "Fluorescence Before [counts]", table.Columns[1])
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "1000", table.Rows[0][1])
}

func TestReadTable_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := readTable(path, ";")
	assert.Error(t, err)
}

func TestBuildRequest(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "WT_rep1.csv")
	writeExport(t, dir, "wt_rep2.csv")
	writeExport(t, dir, "mut_rep1.csv")
	writeExport(t, dir, "unrelated.csv")
	writeExport(t, dir, "notes.txt") // ignored extension

	req, err := buildRequest(context.Background(), slog.Default(), dir, "wt", "mut", "hill,quadratic", requestOptions{
		initialKd:  1e-7,
		hillSlope:  1.0,
		targetConc: 5e-9,
		readout:    domain.ReadoutFnorm,
		separator:  ";",
	})
	require.NoError(t, err)

	// Prefix matching is case-insensitive.
	assert.Equal(t, "wt", req.GroupA.Name)
	assert.Len(t, req.GroupA.Tables, 2)
	require.NotNil(t, req.GroupB)
	assert.Equal(t, "mut", req.GroupB.Name)
	assert.Len(t, req.GroupB.Tables, 1)

	assert.Equal(t, []domain.ModelKind{domain.ModelHill, domain.ModelQuadratic}, req.Models)
	assert.Equal(t, 1e-7, req.Options.InitialKd)
	assert.Equal(t, 5e-9, req.Options.TargetConc)
}

func TestBuildRequest_SingleGroup(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "wt_rep1.csv")

	req, err := buildRequest(context.Background(), slog.Default(), dir, "wt", "", "hill", requestOptions{
		initialKd: 1e-7,
		separator: ";",
	})
	require.NoError(t, err)
	assert.Nil(t, req.GroupB)
}

func TestBuildRequest_NoMatches(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "mut_rep1.csv")

	_, err := buildRequest(context.Background(), slog.Default(), dir, "wt", "", "hill", requestOptions{
		initialKd: 1e-7,
		separator: ";",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `group prefix "wt"`)
}

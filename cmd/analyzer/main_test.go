package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const logCSV = `Date,Lot,Temp,Brix,pH
2024-09-01,A,21,24,3.4
2024-09-02,A,22,22,3.4
2024-09-03,A,36,12,3.5
2024-09-04,A,22,12,3.5
2024-09-05,A,22,12,3.5
2024-09-06,A,22,12,3.5
2024-09-01,B,20,23,3.3
2024-09-02,B,20,21,3.3
`

func setup(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("FERM_PATHS_BASE_DIR", base)
	t.Setenv("FERM_CONFIG_FILE", "")
	return base
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_DefaultInput(t *testing.T) {
	base := setup(t)
	writeFile(t, filepath.Join(base, "sample_data", "sample_log.csv"), logCSV)

	code, out, errOut := runCLI(t)
	require.Equal(t, exitOK, code, errOut)

	assert.Contains(t, out, "Summary (all lots)")
	assert.Contains(t, out, "High temperatures (> 35 C)")
	assert.Contains(t, out, "Brix anomalies")
	for _, name := range []string{"summary_stats.csv", "lot_means.csv", "anomalies.csv", "high_temps.csv"} {
		assert.FileExists(t, filepath.Join(base, "outputs", name))
	}
}

func TestRun_SingleLotWithWorkbook(t *testing.T) {
	base := setup(t)
	in := writeFile(t, filepath.Join(base, "log.csv"), logCSV)
	out := filepath.Join(base, "report")

	code, stdout, errOut := runCLI(t, "-lot", "B", "-out", out, "-xlsx", "-q", in)
	require.Equal(t, exitOK, code, errOut)

	assert.NotContains(t, stdout, "Summary")
	assert.FileExists(t, filepath.Join(out, "B_summary_stats.csv"))
	assert.FileExists(t, filepath.Join(out, "fermentation_report.xlsx"))
	assert.NoFileExists(t, filepath.Join(out, "lot_means.csv"))
	assert.NoFileExists(t, filepath.Join(out, "high_temps.csv"))
}

func TestRun_Directory(t *testing.T) {
	base := setup(t)
	writeFile(t, filepath.Join(base, "logs", "tank1.csv"), logCSV)
	writeFile(t, filepath.Join(base, "logs", "tank2.csv"), logCSV)
	writeFile(t, filepath.Join(base, "logs", "readme.md"), "ignored")

	code, _, errOut := runCLI(t, "-dir", "logs", "-q")
	require.Equal(t, exitOK, code, errOut)

	assert.FileExists(t, filepath.Join(base, "outputs", "tank1_csv", "summary_stats.csv"))
	assert.FileExists(t, filepath.Join(base, "outputs", "tank2_csv", "anomalies.csv"))
}

func TestRun_DirectorySameStemDifferentFormats(t *testing.T) {
	base := setup(t)
	writeFile(t, filepath.Join(base, "logs", "tank1.csv"), logCSV)

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Date", "Lot", "Temp", "Brix", "pH"},
		{"2024-09-01", "X", 20, 22, 3.4},
		{"2024-09-02", "X", 20, 21, 3.4},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(base, "logs", "tank1.xlsx")))
	require.NoError(t, f.Close())

	code, _, errOut := runCLI(t, "-dir", "logs", "-q")
	require.Equal(t, exitOK, code, errOut)

	csvMeans, err := os.ReadFile(filepath.Join(base, "outputs", "tank1_csv", "lot_means.csv"))
	require.NoError(t, err)
	xlsxMeans, err := os.ReadFile(filepath.Join(base, "outputs", "tank1_xlsx", "lot_means.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvMeans), "A,")
	assert.Contains(t, string(xlsxMeans), "X,")
	assert.NotContains(t, string(xlsxMeans), "A,")
}

func TestOutputSubdir(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"logs/tank1.csv", "tank1_csv"},
		{"logs/tank1.XLSX", "tank1_xlsx"},
		{"logs/v1.2.csv", "v1.2_csv"},
		{"logs/raw", "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, outputSubdir(tt.path))
		})
	}
}

func TestRun_LatestInDirectory(t *testing.T) {
	base := setup(t)
	old := writeFile(t, filepath.Join(base, "logs", "tank1.csv"), logCSV)
	writeFile(t, filepath.Join(base, "logs", "tank2.csv"), logCSV)
	stamp := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, stamp, stamp))

	code, out, errOut := runCLI(t, "-dir", "logs", "-latest", "-q")
	require.Equal(t, exitOK, code, errOut)

	assert.Contains(t, out, filepath.Join(base, "outputs", "summary_stats.csv"))
	assert.NoDirExists(t, filepath.Join(base, "outputs", "tank1"))
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     func(base string) []string
		wantCode int
	}{
		{
			name: "missing columns",
			args: func(base string) []string {
				return []string{writeFile(t, filepath.Join(base, "bad.csv"), "Date,Lot,Temp\n2024-09-01,A,20\n")}
			},
			wantCode: exitSchema,
		},
		{
			name:     "missing file",
			args:     func(base string) []string { return []string{filepath.Join(base, "none.csv")} },
			wantCode: exitError,
		},
		{
			name:     "bad threshold",
			args:     func(string) []string { return []string{"-threshold", "steep"} },
			wantCode: exitUsage,
		},
		{
			name:     "negative threshold",
			args:     func(base string) []string { return []string{"-threshold", "-1", writeFile(t, filepath.Join(base, "l.csv"), logCSV)} },
			wantCode: exitError,
		},
		{
			name:     "unknown schema",
			args:     func(base string) []string { return []string{"-schema", "giant", writeFile(t, filepath.Join(base, "l.csv"), logCSV)} },
			wantCode: exitError,
		},
		{
			name:     "latest without dir",
			args:     func(string) []string { return []string{"-latest"} },
			wantCode: exitUsage,
		},
		{
			name:     "sheet with files",
			args:     func(string) []string { return []string{"-sheet", "abc", "log.csv"} },
			wantCode: exitUsage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := setup(t)
			code, _, errOut := runCLI(t, tt.args(base)...)
			assert.Equal(t, tt.wantCode, code, errOut)
			assert.Contains(t, errOut, "error:")
		})
	}
}

func TestRun_Version(t *testing.T) {
	setup(t)
	code, out, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "fermcli v")
}

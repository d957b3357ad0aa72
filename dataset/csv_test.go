package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	scratchmlErrors "github.com/scratchml/scratchml/pkg/errors"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadCSV_WithTarget(t *testing.T) {
	path := writeTempCSV(t, "iris.csv",
		"sepal,petal,species\n"+
			"5.1,1.4,0\n"+
			"4.9,1.3,0\n"+
			"6.3,4.7,1\n")

	table, err := LoadCSV(path, WithTarget("species"))
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	if table.NumRows() != 3 {
		t.Errorf("Expected 3 rows, got %d", table.NumRows())
	}

	r, c := table.X().Dims()
	if r != 3 || c != 2 {
		t.Errorf("Expected X shape (3, 2), got (%d, %d)", r, c)
	}
	if table.X().At(2, 1) != 4.7 {
		t.Errorf("Expected X[2,1] = 4.7, got %v", table.X().At(2, 1))
	}

	y, ok := table.Y()
	if !ok {
		t.Fatal("Expected a target column")
	}
	if y.At(2, 0) != 1.0 {
		t.Errorf("Expected y[2] = 1, got %v", y.At(2, 0))
	}

	names := table.FeatureNames()
	if len(names) != 2 || names[0] != "sepal" || names[1] != "petal" {
		t.Errorf("Unexpected feature names: %v", names)
	}
}

func TestLoadCSV_NoTarget(t *testing.T) {
	path := writeTempCSV(t, "points.csv",
		"x,y\n"+
			"1.0,2.0\n"+
			"3.0,4.0\n")

	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	if _, ok := table.Y(); ok {
		t.Error("Expected no target column")
	}
	r, c := table.X().Dims()
	if r != 2 || c != 2 {
		t.Errorf("Expected X shape (2, 2), got (%d, %d)", r, c)
	}
}

func TestLoadCSV_SkipsNonNumeric(t *testing.T) {
	var captured []error
	scratchmlErrors.SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer scratchmlErrors.SetWarningHandler(func(w error) {})

	path := writeTempCSV(t, "mixed.csv",
		"id,name,score,label\n"+
			"1,alice,0.9,1\n"+
			"2,bob,0.4,0\n")

	table, err := LoadCSV(path, WithTarget("label"))
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	names := table.FeatureNames()
	if len(names) != 2 || names[0] != "id" || names[1] != "score" {
		t.Errorf("Expected features [id score], got %v", names)
	}

	if len(captured) != 1 {
		t.Fatalf("Expected 1 warning for the skipped column, got %d", len(captured))
	}
	var convWarn *scratchmlErrors.DataConversionWarning
	if !scratchmlErrors.As(captured[0], &convWarn) {
		t.Errorf("Expected DataConversionWarning, got %T", captured[0])
	}
}

func TestLoadCSV_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
			t.Error("Expected error for a missing file")
		}
	})

	t.Run("header only", func(t *testing.T) {
		path := writeTempCSV(t, "empty.csv", "a,b\n")
		if _, err := LoadCSV(path); err == nil {
			t.Error("Expected error for a file with no data rows")
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		path := writeTempCSV(t, "data.csv", "a,b\n1,2\n")
		_, err := LoadCSV(path, WithTarget("label"))
		if err == nil {
			t.Error("Expected error for an unknown target column")
		}
	})

	t.Run("no numeric columns", func(t *testing.T) {
		scratchmlErrors.SetWarningHandler(func(w error) {})
		defer scratchmlErrors.SetWarningHandler(func(w error) {})

		path := writeTempCSV(t, "strings.csv", "name,city\nalice,tokyo\nbob,osaka\n")
		if _, err := LoadCSV(path); err == nil {
			t.Error("Expected error when no column is numeric")
		}
	})

	t.Run("non-numeric target", func(t *testing.T) {
		path := writeTempCSV(t, "badlabel.csv", "a,label\n1,yes\n2,no\n")
		if _, err := LoadCSV(path, WithTarget("label")); err == nil {
			t.Error("Expected error for a non-numeric target column")
		}
	})
}

func TestTable_AppendAndSave(t *testing.T) {
	scratchmlErrors.SetWarningHandler(func(w error) {})
	defer scratchmlErrors.SetWarningHandler(func(w error) {})

	path := writeTempCSV(t, "in.csv",
		"x,y,note\n"+
			"1.0,2.0,first\n"+
			"3.0,4.0,second\n")

	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	if err := table.AppendIntColumn("cluster", []int{0, 1}); err != nil {
		t.Fatalf("AppendIntColumn failed: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "out.csv")
	if err := table.SaveCSV(outPath); err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("Opening output: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Reading output: %v", err)
	}

	wantHeader := []string{"x", "y", "note", "cluster"}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 output rows, got %d", len(rows))
	}
	for j, name := range wantHeader {
		if rows[0][j] != name {
			t.Errorf("Header column %d: expected %q, got %q", j, name, rows[0][j])
		}
	}

	// The skipped text column survives alongside the appended one.
	if rows[1][2] != "first" || rows[2][2] != "second" {
		t.Errorf("Original text column not preserved: %v", rows)
	}
	if rows[1][3] != "0" || rows[2][3] != "1" {
		t.Errorf("Appended column values wrong: %v", rows)
	}
}

func TestTable_AppendIntColumn_LengthMismatch(t *testing.T) {
	path := writeTempCSV(t, "in.csv", "x\n1.0\n2.0\n")

	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	err = table.AppendIntColumn("cluster", []int{0})
	if err == nil {
		t.Fatal("Expected error for length mismatch")
	}
	var dimErr *scratchmlErrors.DimensionError
	if !scratchmlErrors.As(err, &dimErr) {
		t.Errorf("Expected DimensionError, got %T", err)
	}
}

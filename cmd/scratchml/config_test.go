package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestParseMaxFeatures(t *testing.T) {
	if v, ok := parseMaxFeatures("3").(int); !ok || v != 3 {
		t.Errorf("Expected int 3, got %T %v", parseMaxFeatures("3"), parseMaxFeatures("3"))
	}
	if v, ok := parseMaxFeatures("0.5").(float64); !ok || v != 0.5 {
		t.Errorf("Expected float64 0.5, got %T", parseMaxFeatures("0.5"))
	}
	if v, ok := parseMaxFeatures("sqrt").(string); !ok || v != "sqrt" {
		t.Errorf("Expected string sqrt, got %T", parseMaxFeatures("sqrt"))
	}
}

func TestCheckFeatureMatch(t *testing.T) {
	if err := checkFeatureMatch([]string{"a", "b"}, []string{"a", "b"}); err != nil {
		t.Errorf("Expected matching columns to pass: %v", err)
	}
	if err := checkFeatureMatch([]string{"a", "b"}, []string{"a"}); err == nil {
		t.Error("Expected error for missing column")
	}
	if err := checkFeatureMatch([]string{"a", "b"}, []string{"b", "a"}); err == nil {
		t.Error("Expected error for reordered columns")
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := "model: forest\nn_estimators: 25\ntest_size: 0.3\nbootstrap: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	fc, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig failed: %v", err)
	}
	if fc.Model == nil || *fc.Model != "forest" {
		t.Errorf("Expected model forest, got %v", fc.Model)
	}
	if fc.NEstimators == nil || *fc.NEstimators != 25 {
		t.Errorf("Expected n_estimators 25, got %v", fc.NEstimators)
	}
	if fc.Bootstrap == nil || *fc.Bootstrap != false {
		t.Errorf("Expected bootstrap false, got %v", fc.Bootstrap)
	}
	if fc.Seed != nil {
		t.Errorf("Expected absent seed to stay nil, got %v", *fc.Seed)
	}
}

func TestFileConfigPrecedence(t *testing.T) {
	cmd := &cobra.Command{Use: "stub"}
	p := &modelParams{}
	bindModelFlags(cmd, p)

	// Simulate an explicit flag next to defaults.
	if err := cmd.ParseFlags([]string{"--criterion", "gini"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	fileCriterion := "entropy"
	fileEstimators := 25
	fc := &fileConfig{Criterion: &fileCriterion, NEstimators: &fileEstimators}
	p.applyFile(cmd, fc)

	// The explicit flag survives; the untouched default yields to the file.
	if p.criterion != "gini" {
		t.Errorf("Expected flag value gini to win, got %q", p.criterion)
	}
	if p.nEstimators != 25 {
		t.Errorf("Expected file value 25 to apply, got %d", p.nEstimators)
	}
}

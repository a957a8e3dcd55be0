package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/geektoshi/nebulactl/internal/history"
)

func sampleEntries() []history.Entry {
	return []history.Entry{
		{
			ID:          "op-1",
			Kind:        "install",
			Outcome:     "succeeded",
			Targets:     []history.TargetOutcome{{Package: "htop", Version: "3.3.0_1"}},
			CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2026, 8, 1, 12, 0, 4, 0, time.UTC),
		},
	}
}

func TestExportHistoryYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.yaml")
	if err := exportHistory(path, sampleEntries()); err != nil {
		t.Fatalf("exportHistory() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var decoded []history.Entry
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "op-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestExportHistoryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.json")
	if err := exportHistory(path, sampleEntries()); err != nil {
		t.Fatalf("exportHistory() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var decoded []history.Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(decoded) != 1 || decoded[0].Targets[0].Package != "htop" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestExportHistoryRejectsUnknownFormat(t *testing.T) {
	err := exportHistory(filepath.Join(t.TempDir(), "ops.csv"), sampleEntries())
	if err == nil || !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("exportHistory(.csv) error = %v", err)
	}
}

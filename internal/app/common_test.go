package app

import (
	"strings"
	"testing"

	"github.com/geektoshi/nebulactl/internal/ops"
)

func TestConfirmFrom(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes word", "yes\n", true},
		{"uppercase", "Y\n", true},
		{"no", "n\n", false},
		{"empty defaults to no", "\n", false},
		{"garbage", "maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := confirmFrom(strings.NewReader(tt.input), "Proceed?"); got != tt.want {
				t.Errorf("confirmFrom(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToRefs(t *testing.T) {
	refs := toRefs([]string{"vim", "htop"})
	if len(refs) != 2 || refs[0].Name != "vim" || refs[1].Name != "htop" {
		t.Errorf("toRefs() = %v", refs)
	}
}

func TestSubmitErrorBusyMessage(t *testing.T) {
	err := submitError(&ops.BusyError{Conflicting: []ops.PackageRef{{Name: "vim"}, {Name: "htop"}}})
	if err == nil || !strings.Contains(err.Error(), "vim, htop") {
		t.Errorf("submitError() = %v, want conflicting names", err)
	}
}

func TestReportOutcomeMapsClassToError(t *testing.T) {
	tests := []struct {
		name    string
		class   ops.OutcomeClass
		wantErr bool
	}{
		{"all succeeded", ops.AllSucceeded, false},
		{"partial failure", ops.PartialFailure, true},
		{"all failed", ops.AllFailed, true},
		{"cancelled", ops.Cancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ops.OperationRecord{
				Kind: ops.Remove,
				Outcome: &ops.BatchOutcome{
					Class: tt.class,
					Results: []ops.TargetResult{
						{Target: ops.PackageRef{Name: "vim"}},
					},
				},
			}
			if tt.class == ops.PartialFailure || tt.class == ops.AllFailed {
				rec.Outcome.Results[0].Reason = "boom"
			}
			err := reportOutcome(rec)
			if (err != nil) != tt.wantErr {
				t.Errorf("reportOutcome(%s) error = %v, wantErr %v", tt.class, err, tt.wantErr)
			}
		})
	}
}

func TestCapitalize(t *testing.T) {
	if got := capitalize("remove"); got != "Remove" {
		t.Errorf("capitalize() = %q", got)
	}
	if got := capitalize(""); got != "" {
		t.Errorf("capitalize(empty) = %q", got)
	}
}

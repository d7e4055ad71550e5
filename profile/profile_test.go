package profile

import (
	"slices"
	"testing"
)

func TestProfiler_Start(t *testing.T) {
	tests := []struct {
		name string
		p    Profiler
	}{
		{"empty mode", Profiler{}},
		{"unknown mode", Profiler{Mode: "sideways", Path: t.TempDir(), Quiet: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.p.Start()
			if _, ok := s.(ignore); !ok {
				t.Errorf("expected a no-op stopper, got %T", s)
			}

			s.Stop()
		})
	}
}

func TestModes(t *testing.T) {
	modes := Modes()

	if !Enabled {
		if len(modes) != 0 {
			t.Errorf("expected no modes without the %s tag, got %v", Tag, modes)
		}

		return
	}

	if !slices.IsSorted(modes) || !slices.Contains(modes, "cpu") {
		t.Errorf("unexpected modes %v", modes)
	}
}

package main

import (
	"testing"
)

func TestParseSweep(t *testing.T) {
	names, ranges, err := parseSweep([]string{"beta=0.1,0.2", "gamma=0:1:3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "beta" || names[1] != "gamma" {
		t.Errorf("names = %v", names)
	}
	if len(ranges[0]) != 2 || ranges[0][1] != 0.2 {
		t.Errorf("beta values = %v", ranges[0])
	}
	if len(ranges[1]) != 3 || ranges[1][1] != 0.5 || ranges[1][2] != 1 {
		t.Errorf("gamma values = %v", ranges[1])
	}

	for _, bad := range []string{"beta", "=1", "beta=x", "beta=0:1:n"} {
		if _, _, err := parseSweep([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSelectVars(t *testing.T) {
	names := []string{"S", "I", "R"}
	idx, err := selectVars(names, []string{"R", "S"})
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 2 || idx[0] != 2 || idx[1] != 0 {
		t.Errorf("indices = %v", idx)
	}
	if idx, _ := selectVars(names, nil); len(idx) != 0 {
		t.Errorf("empty selection should give no indices, got %v", idx)
	}
	if _, err := selectVars(names, []string{"E"}); err == nil {
		t.Error("expected error for unknown variable")
	}
}

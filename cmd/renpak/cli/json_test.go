// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmitJSON(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		value    any
		wantDone bool
		want     string
	}{
		{"disabled", false, map[string]int{"entries": 3}, false, ""},
		{"object", true, map[string]int{"entries": 3}, true, "{\n  \"entries\": 3\n}\n"},
		{"nil slice", true, []string(nil), true, "[]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			j := JSONOutput{OutputJSON: tt.enabled}
			done, err := j.EmitJSON(&output, tt.value)
			if err != nil {
				t.Fatalf("EmitJSON: %v", err)
			}
			if done != tt.wantDone {
				t.Errorf("done = %v, want %v", done, tt.wantDone)
			}
			if got := output.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
			if !tt.enabled && strings.TrimSpace(output.String()) != "" {
				t.Error("wrote output while disabled")
			}
		})
	}
}

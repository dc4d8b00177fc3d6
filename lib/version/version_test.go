// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoUsesInjectedValues(t *testing.T) {
	savedCommit, savedDirty, savedTime, savedVersion := GitCommit, GitDirty, BuildTime, Version
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime, Version = savedCommit, savedDirty, savedTime, savedVersion
	})

	GitCommit, GitDirty, BuildTime, Version = "abc1234", "true", "2026-10-01T00:00:00Z", "1.2.3"
	if got, want := Info(), "1.2.3 (abc1234-dirty, 2026-10-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if got := Generator(); got != "renpak/1.2.3" {
		t.Errorf("Generator() = %q", got)
	}
	if !strings.HasPrefix(Full(), Info()+"\n  Go: ") {
		t.Errorf("Full() = %q", Full())
	}
}

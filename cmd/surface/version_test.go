package main

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	v := Version()
	base := strings.TrimSpace(embeddedVersion)
	if v != base && !strings.Contains(v, base) && !strings.HasPrefix(v, "v") {
		t.Errorf("Version() = %q, want it to mention %q", v, base)
	}
}

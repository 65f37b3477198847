package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	for _, s := range []string{"plangen", Version, GitCommit} {
		if !strings.Contains(info, s) {
			t.Errorf("Info() = %q, missing %q", info, s)
		}
	}
}

func TestMap(t *testing.T) {
	m := Map()
	if m["version"] != Short() {
		t.Errorf("Map()[version] = %q, want %q", m["version"], Short())
	}
	if m["go_version"] == "" {
		t.Error("Map()[go_version] is empty")
	}
}

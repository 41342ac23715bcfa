package xid

import (
	"strings"
	"testing"
)

func TestImageNameFormat(t *testing.T) {
	name := ImageName(".PNG")

	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected lowercased extension, got %s", name)
	}
	parts := strings.SplitN(strings.TrimSuffix(name, ".png"), "_", 2)
	if len(parts) != 2 || len(parts[0]) != 14 || len(parts[1]) != 8 {
		t.Fatalf("unexpected name shape %s", name)
	}
}

func TestImageNameUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := ImageName(".jpg")
		if seen[name] {
			t.Fatalf("duplicate generated name %s", name)
		}
		seen[name] = true
	}
}

package sync

import (
	"encoding/hex"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	first := Fingerprint(KindText, "hello world")
	second := Fingerprint(KindText, "hello world")
	if first != second {
		t.Errorf("same input produced different fingerprints: %s vs %s", first, second)
	}
}

func TestFingerprintDistinguishesKindAndContent(t *testing.T) {
	base := Fingerprint(KindText, "report.pdf")
	if Fingerprint(KindFile, "report.pdf") == base {
		t.Error("different kinds over identical bytes must not collide")
	}
	if Fingerprint(KindText, "report.pdf ") == base {
		t.Error("different content must not collide")
	}
}

func TestFingerprintIsHexSHA256(t *testing.T) {
	fp := Fingerprint(KindImage, "blob-42")
	if len(fp) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(fp))
	}
	if _, err := hex.DecodeString(fp); err != nil {
		t.Errorf("fingerprint is not valid hex: %v", err)
	}
}

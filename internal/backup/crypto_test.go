package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "snapshot.db")
	enc := filepath.Join(dir, "snapshot.enc")
	out := filepath.Join(dir, "restored.db")

	content := []byte("sqlite snapshot bytes")
	if err := os.WriteFile(src, content, 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if err := EncryptFile(src, enc, "correct horse", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	sealed, err := os.ReadFile(enc)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if bytes.Contains(sealed, content) {
		t.Error("archive contains the plaintext")
	}
	if !bytes.Equal(sealed[:saltSize], salt) {
		t.Error("archive must start with the salt")
	}

	if err := DecryptFile(enc, out, "correct horse"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	restored, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(restored, content) {
		t.Errorf("restored = %q, want %q", restored, content)
	}
}

func TestDecryptRejectsWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "snapshot.db")
	enc := filepath.Join(dir, "snapshot.enc")

	if err := os.WriteFile(src, []byte("secret"), 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if err := EncryptFile(src, enc, "right", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if err := DecryptFile(enc, filepath.Join(dir, "out.db"), "wrong"); err == nil {
		t.Fatal("decrypt with the wrong passphrase must fail")
	}
}

func TestDecryptRejectsTruncatedArchive(t *testing.T) {
	dir := t.TempDir()
	enc := filepath.Join(dir, "tiny.enc")
	if err := os.WriteFile(enc, make([]byte, saltSize), 0600); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	if err := DecryptFile(enc, filepath.Join(dir, "out.db"), "pw"); err == nil {
		t.Fatal("archive shorter than its header must be rejected")
	}
}

package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
)

func TestFileVault(t *testing.T) {
	v := NewFileVault(t.TempDir())

	if err := v.Set("access_token", "header.payload.sig"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := v.Get("access_token")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "header.payload.sig" {
		t.Errorf("expected 'header.payload.sig', got %q", val)
	}

	_, err = v.Get("missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := v.Set("refresh_token", "r-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	keys, err := v.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "access_token" || keys[1] != "refresh_token" {
		t.Errorf("unexpected keys %v", keys)
	}

	if err := v.Delete("access_token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	keys, _ = v.List()
	if len(keys) != 1 {
		t.Errorf("expected 1 key after delete, got %d", len(keys))
	}

	if err := v.Delete("access_token"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound deleting twice, got %v", err)
	}
}

func TestFileVault_Persistence(t *testing.T) {
	dir := t.TempDir()

	if err := NewFileVault(dir).Set("access_token", "persist"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := NewFileVault(dir).Get("access_token")
	if err != nil {
		t.Fatalf("Get from second instance failed: %v", err)
	}
	if val != "persist" {
		t.Errorf("expected 'persist', got %q", val)
	}
}

func TestFileVault_EncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	v := NewFileVault(dir)
	if err := v.Set("access_token", "plain-secret-value"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("vault file is empty")
	}
	for i := 0; i+len("plain-secret") <= len(data); i++ {
		if string(data[i:i+len("plain-secret")]) == "plain-secret" {
			t.Fatal("secret stored in plaintext")
		}
	}

	info, err := os.Stat(v.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestFileVault_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("short"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileVault(dir).Get("access_token"); err == nil {
		t.Error("expected error for corrupt vault")
	}
}

func TestFileVault_EmptyVault(t *testing.T) {
	keys, err := NewFileVault(t.TempDir()).List()
	if err != nil {
		t.Fatalf("List on empty vault failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected 0 keys, got %d", len(keys))
	}
}

func TestFileVault_Overwrite(t *testing.T) {
	v := NewFileVault(t.TempDir())

	v.Set("KEY", "value1")
	v.Set("KEY", "value2")

	val, _ := v.Get("KEY")
	if val != "value2" {
		t.Errorf("expected 'value2' after overwrite, got %q", val)
	}
	keys, _ := v.List()
	if len(keys) != 1 {
		t.Errorf("expected 1 key (no duplicate), got %d", len(keys))
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"short", "****"},
		{"12345678", "****"},
		{"eyJhbGciOiJIUzI1NiJ9.e30.sig-abcd", "eyJh...abcd"},
	}

	for _, tt := range tests {
		if got := Mask(tt.input); got != tt.expected {
			t.Errorf("Mask(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestDeriveKey(t *testing.T) {
	key1 := deriveKey()
	key2 := deriveKey()
	if len(key1) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(key1))
	}
	if string(key1) != string(key2) {
		t.Error("deriveKey should be deterministic")
	}
}

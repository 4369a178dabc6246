package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.klb.dev/clipshare/internal/tlsconf"
)

func TestWithPort(t *testing.T) {
	tests := map[string]string{
		"localhost":      "localhost:8753",
		"10.0.0.2:9000":  "10.0.0.2:9000",
		"fe80::1":        "[fe80::1]:8753",
		"[fe80::1]:1234": "[fe80::1]:1234",
	}
	for in, want := range tests {
		if got := withPort(in); got != want {
			t.Errorf("withPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsContainerID(t *testing.T) {
	tests := map[string]bool{
		"3f4e5a6b7c8d":     true,
		"3F4E5A6B7C8D":     false,
		"laptop":           false,
		"3f4e5a6b7c8":      false,
		"3f4e5a6b7c8d-xyz": false,
	}
	for in, want := range tests {
		if got := isContainerID(in); got != want {
			t.Errorf("isContainerID(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultSourceEnv(t *testing.T) {
	t.Setenv("CLIPSHARE_SOURCE", "my-desk")
	if got := defaultSource(); got != "my-desk" {
		t.Fatalf("defaultSource = %q", got)
	}
}

func TestPassphrase(t *testing.T) {
	if got := passphrase(""); got != tlsconf.DefaultPassphrase {
		t.Fatalf("passphrase(\"\") = %q", got)
	}
	if got := passphrase("s3cret"); got != "s3cret" {
		t.Fatalf("passphrase = %q", got)
	}
}

func TestFmtBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		1536:            "1.5 KiB",
		30 * 1024 << 10: "30.0 MiB",
		5 << 30:         "5.0 GiB",
	}
	for in, want := range tests {
		if got := fmtBytes(in); got != want {
			t.Errorf("fmtBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestAbsPaths(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got, err := absPaths([]string{"a.txt", "/etc/hosts"})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got[0]) || filepath.Base(got[0]) != "a.txt" || got[1] != "/etc/hosts" {
		t.Fatalf("absPaths = %v", got)
	}
}

package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"stereocap/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckResolution(t *testing.T) {
	if result := CheckResolution("MEDIUM"); !result.Passed {
		t.Fatalf("expected pass for MEDIUM, got: %s", result.Detail)
	}
	if result := CheckResolution("ULTRA"); result.Passed {
		t.Fatal("expected failure for unknown label")
	}
}

func TestCheckAddress(t *testing.T) {
	if result := CheckAddress("test", "tcp://10.42.0.1:32211"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckAddress("test", "udp://10.42.0.1:32211"); result.Passed {
		t.Fatal("expected failure for udp scheme")
	}
	if result := CheckAddress("test", "10.42.0.1:32211"); result.Passed {
		t.Fatal("expected failure for missing scheme")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := CheckDiskSpace("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass on temp filesystem, got: %s", result.Detail)
	}
}

func TestRunAllCoversConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Sessions.Dir = t.TempDir()
	results := RunAll(&cfg)
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestFailedFilters(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b"},
		{Name: "c", Passed: true},
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected filter result: %+v", failed)
	}
}

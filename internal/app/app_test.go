package app

import (
	"path/filepath"
	"testing"
)

func TestNewWiresService(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NIVESH_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("NIVESH_SQLITE_PATH", filepath.Join(dir, "nivesh.db"))

	a, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Service == nil || a.Bars == nil || a.DB == nil || a.Logger == nil {
		t.Fatalf("app not fully wired: %+v", a)
	}
	if a.Config.Storage.DataDir != filepath.Join(dir, "data") {
		t.Errorf("data dir = %q, want env override applied", a.Config.Storage.DataDir)
	}
}

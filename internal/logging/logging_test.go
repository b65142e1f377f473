package logging

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := []string{}
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

func TestRotatePrunesOutsideRetention(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "app-2024-03-01.log")
	touch(t, dir, "app-2024-03-08.log")
	touch(t, dir, "notes.txt")

	now := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)
	rot := &Rotator{Dir: dir, RetentionDays: 3, Now: func() time.Time { return now }}
	if err := rot.Rotate(); err != nil {
		t.Fatal(err)
	}
	defer rot.Close()

	got := listDir(t, dir)
	want := []string{"app-2024-03-08.log", "app-2024-03-09.log", "notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("files = %v, want %v", got, want)
		}
	}
}

func TestRotateSwitchesFileOnNewDay(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	rot := &Rotator{Dir: dir, RetentionDays: 7, Now: func() time.Time { return now }}
	if err := rot.Rotate(); err != nil {
		t.Fatal(err)
	}
	defer rot.Close()

	now = now.Add(2 * time.Minute)
	if err := rot.Rotate(); err != nil {
		t.Fatal(err)
	}
	log.Printf("after midnight")

	data, err := os.ReadFile(filepath.Join(dir, "app-2024-03-10.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("new day's file is empty")
	}
}

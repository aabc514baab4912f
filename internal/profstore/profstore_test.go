package profstore

import (
	"path/filepath"
	"testing"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.db")
	s := openStore(t, path)

	counts := map[string]uint64{
		"main:1":  150,
		"loop:12": 7,
	}
	if err := s.Save(counts); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Counters survive the process boundary.
	s = openStore(t, path)
	defer s.Close()
	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded: got=%d entries, want=2", len(loaded))
	}
	if loaded["main:1"] != 150 || loaded["loop:12"] != 7 {
		t.Errorf("loaded counters wrong: %v", loaded)
	}
}

func TestSaveKeepsHigherCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.db")
	s := openStore(t, path)
	defer s.Close()

	if err := s.Save(map[string]uint64{"main:1": 100}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A later save with a lower count must not regress the stored one.
	if err := s.Save(map[string]uint64{"main:1": 40}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["main:1"] != 100 {
		t.Errorf("count regressed: got=%d, want=100", loaded["main:1"])
	}

	if err := s.Save(map[string]uint64{"main:1": 300}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, _ = s.Load()
	if loaded["main:1"] != 300 {
		t.Errorf("count not raised: got=%d, want=300", loaded["main:1"])
	}
}

func TestListOrdersHottestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.db")
	s := openStore(t, path)
	defer s.Close()

	s.Save(map[string]uint64{"a": 5, "b": 50, "c": 20})

	rows, err := s.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got=%d, want=3", len(rows))
	}
	want := []string{"b", "c", "a"}
	for i, site := range want {
		if rows[i].Site != site {
			t.Errorf("row %d: got=%q, want=%q", i, rows[i].Site, site)
		}
	}

	limited, err := s.List(1)
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(limited) != 1 || limited[0].Site != "b" {
		t.Errorf("limited list: got=%+v", limited)
	}
}

func TestEmptyStore(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "profile.db"))
	defer s.Close()

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("fresh store not empty: %v", loaded)
	}
}

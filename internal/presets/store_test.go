package presets

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"lumi/domain"
	"lumi/domain/entity"
)

const testPath = "/home/user/.lumi/saved_filters.json"

func newMemStore() *Store {
	return NewStore(afero.NewMemMapFs(), testPath)
}

func TestListEmptyWhenFileMissing(t *testing.T) {
	s := newMemStore()
	got, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}
}

func TestSaveAndList(t *testing.T) {
	s := newMemStore()

	f := entity.DefaultFilter()
	f.Priority = entity.PriorityHigh
	p, err := s.Save("urgent", f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" {
		t.Error("expected a generated preset id")
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "urgent" || got[0].Filters.Priority != entity.PriorityHigh {
		t.Errorf("unexpected list %+v", got)
	}
}

func TestSaveRejectsEmptyName(t *testing.T) {
	s := newMemStore()
	_, err := s.Save("", entity.DefaultFilter())
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestSavePersistsUnderNamespacedKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, testPath)
	if _, err := s.Save("everything", entity.DefaultFilter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := afero.ReadFile(fs, testPath)
	if err != nil {
		t.Fatalf("preset file not written: %v", err)
	}
	var doc map[string][]Preset
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("file is not valid JSON: %v", err)
	}
	if len(doc[StorageKey]) != 1 {
		t.Errorf("expected one preset under %q, got %v", StorageKey, doc)
	}
}

func TestDelete(t *testing.T) {
	s := newMemStore()
	p, err := s.Save("weekly", entity.DefaultFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Delete(p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list after delete, got %v", got)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := newMemStore()
	err := s.Delete("no-such-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestLoadSurvivesProcessRestart(t *testing.T) {
	fs := afero.NewMemMapFs()

	first := NewStore(fs, testPath)
	if _, err := first.Save("today", entity.DefaultFilter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := NewStore(fs, testPath)
	got, err := second.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "today" {
		t.Errorf("expected the persisted preset, got %v", got)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, testPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(fs, testPath)
	if _, err := s.List(); err == nil {
		t.Error("expected an error for a corrupt preset file")
	}
}

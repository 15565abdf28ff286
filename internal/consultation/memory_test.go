package consultation

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreSaveIsUpsert(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &Session{ID: "s1", Mode: ModePatient, Patient: PatientInfo{Name: "A"}}
	if err := store.Save(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := &Session{ID: "s1", Mode: ModePatient, Patient: PatientInfo{Name: "B"}}
	if err := store.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Patient.Name != "B" {
		t.Fatalf("expected last write to win, got %q", got.Patient.Name)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("upsert must preserve the original creation time")
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Fatal("updated_at must not precede created_at")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreConversationOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		if err := store.AppendEntry(ctx, Entry{SessionID: "s1", Role: RoleUser, Message: msg}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.Conversation(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"one", "two", "three"} {
		if entries[i].Message != want {
			t.Fatalf("entries out of append order: %+v", entries)
		}
	}
}

func TestMemoryStoreDiagnosesAccumulate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SaveDiagnoses(ctx, "s1", []DiagnosisCandidate{{Name: "A", Confidence: 50}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveDiagnoses(ctx, "s1", []DiagnosisCandidate{{Name: "B", Confidence: 40}}); err != nil {
		t.Fatal(err)
	}

	ds, err := store.Diagnoses(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 || ds[0].Name != "A" || ds[1].Name != "B" {
		t.Fatalf("diagnoses must accumulate in order: %+v", ds)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, &Session{ID: "s1", Mode: ModePatient, Symptoms: "original"}); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Get(ctx, "s1")
	got.Symptoms = "mutated"

	again, _ := store.Get(ctx, "s1")
	if again.Symptoms != "original" {
		t.Fatal("store must not expose internal state to callers")
	}
}

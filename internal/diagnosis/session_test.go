package diagnosis

import "testing"

func TestStoreCreateReplacesExistingSession(t *testing.T) {
	store := NewStore()

	first := store.Create(1, 100, "Ana", &ImageVerdict{Label: "Botrytis"})
	second := store.Create(1, 100, "Ana", &ImageVerdict{Label: "Healthy"})

	if first.AttemptID == second.AttemptID {
		t.Fatal("a new session must get a fresh attempt ID")
	}
	sess, ok := store.Snapshot(1)
	if !ok || sess.Verdict.Label != "Healthy" {
		t.Fatalf("expected the newest session to win, got %+v", sess)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store := NewStore()
	store.Create(1, 100, "Ana", nil)

	if sess := store.Delete(1); sess == nil {
		t.Fatal("first delete must return the session")
	}
	if sess := store.Delete(1); sess != nil {
		t.Fatal("second delete must return nil")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestStoreUpdateMissingSessionReturnsFalse(t *testing.T) {
	store := NewStore()

	called := false
	if store.Update(9, func(s *Session) { called = true }) {
		t.Fatal("update without session must return false")
	}
	if called {
		t.Fatal("fn must not run without a session")
	}
}

func TestLocationCodes(t *testing.T) {
	if LocationHydroponic.Code() != 1 || LocationSubstrate.Code() != 2 || LocationUnset.Code() != 0 {
		t.Fatal("unexpected location codes")
	}
	if LocationHydroponic.String() != "hidroponia" || LocationSubstrate.String() != "sustrato" {
		t.Fatal("unexpected location names")
	}
}

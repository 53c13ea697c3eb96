package match

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
)

type fakeStore struct {
	exact      []db.Fighter
	aliased    []db.Fighter
	candidates []db.Fighter
	nicknamed  []db.Fighter

	aliasCalled    bool
	fuzzyCalled    bool
	nicknameCalled bool
}

func (s *fakeStore) FightersByExactName(_ context.Context, _, _ string) ([]db.Fighter, error) {
	return s.exact, nil
}

func (s *fakeStore) FightersByAlias(_ context.Context, _, _, _ string) ([]db.Fighter, error) {
	s.aliasCalled = true
	return s.aliased, nil
}

func (s *fakeStore) FighterCandidates(_ context.Context, _, _ string, _ int) ([]db.Fighter, error) {
	s.fuzzyCalled = true
	return s.candidates, nil
}

func (s *fakeStore) FightersByNickname(_ context.Context, _ string) ([]db.Fighter, error) {
	s.nicknameCalled = true
	return s.nicknamed, nil
}

func strptr(s string) *string { return &s }

func fighter(id int64, first, last string) db.Fighter {
	return db.Fighter{FighterID: id, FirstName: first, LastName: last}
}

func newTestMatcher(store Store) *Matcher {
	return New(store, zerolog.Nop())
}

func TestFind_EmptyFirstName(t *testing.T) {
	t.Parallel()

	m := newTestMatcher(&fakeStore{})
	got, confidence, err := m.Find(context.Background(), "  ", "Jones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil || confidence != 0 {
		t.Fatalf("expected no match for empty first name, got %+v confidence=%f", got, confidence)
	}
}

func TestFind_ExactUniqueShortCircuits(t *testing.T) {
	t.Parallel()

	store := &fakeStore{exact: []db.Fighter{fighter(7, "Jon", "Jones")}}
	m := newTestMatcher(store)

	got, confidence, err := m.Find(context.Background(), "Jon", "Jones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.FighterID != 7 {
		t.Fatalf("expected fighter 7, got %+v", got)
	}
	if confidence != ConfidenceExact {
		t.Fatalf("expected confidence %f, got %f", ConfidenceExact, confidence)
	}
	if store.aliasCalled || store.fuzzyCalled || store.nicknameCalled {
		t.Fatalf("expected cascade to short-circuit after unique exact match")
	}
}

func TestFind_ExactAmbiguousPicksLowestID(t *testing.T) {
	t.Parallel()

	store := &fakeStore{exact: []db.Fighter{
		fighter(12, "Bruno", "Silva"),
		fighter(3, "Bruno", "Silva"),
	}}
	m := newTestMatcher(store)

	got, confidence, err := m.Find(context.Background(), "Bruno", "Silva", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.FighterID != 3 {
		t.Fatalf("expected the lowest id to win, got %+v", got)
	}
	if confidence != ConfidenceExactAmbiguous {
		t.Fatalf("expected ambiguous confidence %f, got %f", ConfidenceExactAmbiguous, confidence)
	}
	if !store.aliasCalled {
		t.Fatalf("expected ambiguous exact match not to short-circuit the cascade")
	}
}

func TestFind_AliasMatch(t *testing.T) {
	t.Parallel()

	store := &fakeStore{aliased: []db.Fighter{fighter(9, "Jon", "Jones")}}
	m := newTestMatcher(store)

	got, confidence, err := m.Find(context.Background(), "Jonny", "Bones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.FighterID != 9 {
		t.Fatalf("expected alias match, got %+v", got)
	}
	if confidence != ConfidenceAlias {
		t.Fatalf("expected alias confidence %f, got %f", ConfidenceAlias, confidence)
	}
}

func TestFind_FuzzyMatchWithinBounds(t *testing.T) {
	t.Parallel()

	store := &fakeStore{candidates: []db.Fighter{fighter(4, "Jon", "Jones")}}
	m := newTestMatcher(store)

	got, confidence, err := m.Find(context.Background(), "Jonathan", "Jones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.FighterID != 4 {
		t.Fatalf("expected fuzzy match, got %+v", got)
	}
	if confidence <= fuzzyFloor || confidence > ConfidenceFuzzyCap {
		t.Fatalf("expected fuzzy confidence in (%f,%f], got %f", fuzzyFloor, ConfidenceFuzzyCap, confidence)
	}
}

func TestFind_FuzzyRejectsBelowFloor(t *testing.T) {
	t.Parallel()

	store := &fakeStore{candidates: []db.Fighter{fighter(4, "Khabib", "Nurmagomedov")}}
	m := newTestMatcher(store)

	got, confidence, err := m.Find(context.Background(), "Jon", "Jones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no match below the fuzzy floor, got %+v confidence=%f", got, confidence)
	}
}

func TestFind_NicknameMatch(t *testing.T) {
	t.Parallel()

	shogun := fighter(5, "Mauricio", "Rua")
	shogun.Nickname = strptr("Shogun")
	store := &fakeStore{nicknamed: []db.Fighter{shogun}}
	m := newTestMatcher(store)

	got, confidence, err := m.Find(context.Background(), "Shogun", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.FighterID != 5 {
		t.Fatalf("expected nickname match, got %+v", got)
	}
	if confidence != ConfidenceNickname {
		t.Fatalf("expected nickname confidence %f, got %f", ConfidenceNickname, confidence)
	}
}

func TestFind_StrategyConfidenceOrdering(t *testing.T) {
	t.Parallel()

	if !(ConfidenceExact >= ConfidenceAlias &&
		ConfidenceAlias >= ConfidenceFuzzyCap &&
		ConfidenceFuzzyCap >= ConfidenceNickname) {
		t.Fatalf("strategy confidences must be monotonically non-increasing")
	}
}

func TestFind_HigherStrategyWinsWhenBothSucceed(t *testing.T) {
	t.Parallel()

	target := fighter(2, "Jon", "Jones")
	store := &fakeStore{
		aliased:    []db.Fighter{target},
		candidates: []db.Fighter{target, fighter(8, "Jon", "Jonson")},
	}
	m := newTestMatcher(store)

	got, confidence, err := m.Find(context.Background(), "Jonny", "Jones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.FighterID != 2 {
		t.Fatalf("expected alias hit to outrank fuzzy hit, got %+v", got)
	}
	if confidence != ConfidenceAlias {
		t.Fatalf("expected alias confidence %f, got %f", ConfidenceAlias, confidence)
	}
}

func TestFind_NationalityBoost(t *testing.T) {
	t.Parallel()

	f := fighter(6, "Jon", "Jones")
	f.Nationality = strptr("USA")
	store := &fakeStore{aliased: []db.Fighter{f}}
	m := newTestMatcher(store)

	_, plain, err := m.Find(context.Background(), "Jonny", "Bones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, boosted, err := m.Find(context.Background(), "Jonny", "Bones", &Context{Nationality: "usa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if boosted != plain+nationalityBoost {
		t.Fatalf("expected nationality boost of %f, got %f -> %f", nationalityBoost, plain, boosted)
	}
}

func TestFind_ImplausibleAgePenalty(t *testing.T) {
	t.Parallel()

	dob := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	eventDate := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	f := fighter(6, "Jon", "Jones")
	f.DateOfBirth = &dob
	store := &fakeStore{aliased: []db.Fighter{f}}
	m := newTestMatcher(store)

	_, confidence, err := m.Find(context.Background(), "Jonny", "Bones", &Context{EventDate: &eventDate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if confidence != ConfidenceAlias-implausibleAgeCost {
		t.Fatalf("expected implausible-age penalty, got %f", confidence)
	}
}

func TestFind_PlausibleAgeBoostClampsToOne(t *testing.T) {
	t.Parallel()

	dob := time.Date(1987, 7, 19, 0, 0, 0, 0, time.UTC)
	eventDate := time.Date(2013, 9, 21, 0, 0, 0, 0, time.UTC)

	f := fighter(1, "Jon", "Jones")
	f.Nationality = strptr("USA")
	f.DateOfBirth = &dob
	store := &fakeStore{exact: []db.Fighter{f}}
	m := newTestMatcher(store)

	_, confidence, err := m.Find(context.Background(), "Jon", "Jones", &Context{
		Nationality: "USA",
		EventDate:   &eventDate,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if confidence != 1 {
		t.Fatalf("expected boosted confidence to clamp at 1.0, got %f", confidence)
	}
}

func TestTopCandidates_OrderedAndLimited(t *testing.T) {
	t.Parallel()

	target := fighter(2, "Jon", "Jones")
	store := &fakeStore{
		aliased:    []db.Fighter{target},
		candidates: []db.Fighter{fighter(8, "Jon", "Jonson"), target},
	}
	m := newTestMatcher(store)

	candidates, err := m.TopCandidates(context.Background(), "Jonny", "Jones", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected limit to apply, got %d candidates", len(candidates))
	}
	if candidates[0].Fighter.FighterID != 2 || candidates[0].Strategy != StrategyAlias {
		t.Fatalf("expected the alias hit first, got %+v", candidates[0])
	}
}

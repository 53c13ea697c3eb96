package roster

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/match"
)

type fakeFinder struct {
	fighter    *db.Fighter
	confidence float64
	gotCtx     *match.Context
}

func (f *fakeFinder) Find(_ context.Context, _, _ string, mctx *match.Context) (*db.Fighter, float64, error) {
	f.gotCtx = mctx
	return f.fighter, f.confidence, nil
}

type fakeRosterStore struct {
	byURL *db.Fighter

	inserted   []*db.Fighter
	updated    []*db.Fighter
	variations []*db.FighterNameVariation
	nextID     int64
}

func (s *fakeRosterStore) FighterByWikipediaURL(_ context.Context, _ string) (*db.Fighter, error) {
	return s.byURL, nil
}

func (s *fakeRosterStore) UpdateFighterProfile(_ context.Context, f *db.Fighter) error {
	s.updated = append(s.updated, f)
	return nil
}

func (s *fakeRosterStore) InsertFighter(_ context.Context, f *db.Fighter) error {
	s.nextID++
	f.FighterID = s.nextID
	s.inserted = append(s.inserted, f)
	return nil
}

func (s *fakeRosterStore) InsertNameVariation(_ context.Context, v *db.FighterNameVariation) (bool, error) {
	s.variations = append(s.variations, v)
	return true, nil
}

func strptr(s string) *string { return &s }

func TestResolveOrCreate_EmptyFirstName(t *testing.T) {
	t.Parallel()

	svc := New(&fakeFinder{}, 0, zerolog.Nop())
	_, _, _, err := svc.ResolveOrCreate(context.Background(), &fakeRosterStore{}, Mention{LastName: "Jones"}, nil)
	if err == nil {
		t.Fatalf("expected an error for a mention without a first name")
	}
}

func TestResolveOrCreate_ConfidentMatchBackfills(t *testing.T) {
	t.Parallel()

	existing := &db.Fighter{FighterID: 3, FirstName: "Jon", LastName: "Jones", DataSource: "manual"}
	finder := &fakeFinder{fighter: existing, confidence: 0.9}
	store := &fakeRosterStore{}
	svc := New(finder, 0, zerolog.Nop())

	mention := Mention{
		FirstName:    "Jon",
		LastName:     "Jones",
		Nationality:  "USA",
		WikipediaURL: "https://en.wikipedia.org/wiki/Jon_Jones",
		Source:       "wikipedia",
	}
	got, wasCreated, confidence, err := svc.ResolveOrCreate(context.Background(), store, mention, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wasCreated || got.FighterID != 3 || confidence != 0.9 {
		t.Fatalf("expected match to fighter 3, got created=%v id=%d confidence=%f", wasCreated, got.FighterID, confidence)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected one profile update, got %d", len(store.updated))
	}
	if got.Nationality == nil || *got.Nationality != "USA" {
		t.Fatalf("expected empty nationality to be backfilled, got %+v", got.Nationality)
	}
	if got.WikipediaURL == nil || *got.WikipediaURL != mention.WikipediaURL {
		t.Fatalf("expected empty wikipedia url to be backfilled")
	}
	if got.DataSource != "manual,wikipedia" {
		t.Fatalf("expected provenance tag to append, got %q", got.DataSource)
	}
	if len(store.variations) != 0 {
		t.Fatalf("expected no alias for an identical literal name, got %d", len(store.variations))
	}

	stats := svc.Stats()
	if stats.Matched != 1 || stats.Updated != 1 || stats.Created != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestResolveOrCreate_NeverOverwritesPopulatedFields(t *testing.T) {
	t.Parallel()

	existing := &db.Fighter{
		FighterID:   3,
		FirstName:   "Jon",
		LastName:    "Jones",
		Nationality: strptr("USA"),
		Nickname:    strptr("Bones"),
		DataSource:  "wikipedia",
	}
	finder := &fakeFinder{fighter: existing, confidence: 0.95}
	store := &fakeRosterStore{}
	svc := New(finder, 0, zerolog.Nop())

	mention := Mention{FirstName: "Jon", LastName: "Jones", Nationality: "Brazil", Nickname: "Other", Source: "wikipedia"}
	got, _, _, err := svc.ResolveOrCreate(context.Background(), store, mention, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Nationality != "USA" || *got.Nickname != "Bones" {
		t.Fatalf("populated fields must not change, got %+v", got)
	}
	if len(store.updated) != 0 {
		t.Fatalf("expected no update when nothing changed, got %d", len(store.updated))
	}
}

func TestResolveOrCreate_AliasRecordedOnLiteralDifference(t *testing.T) {
	t.Parallel()

	existing := &db.Fighter{FighterID: 7, FirstName: "Jon", LastName: "Jones", DataSource: "wikipedia"}
	finder := &fakeFinder{fighter: existing, confidence: 0.85}
	store := &fakeRosterStore{}
	svc := New(finder, 0, zerolog.Nop())

	_, _, _, err := svc.ResolveOrCreate(context.Background(), store, Mention{
		FirstName: "Jonathan",
		LastName:  "Jones",
		Source:    "sherdog",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.variations) != 1 {
		t.Fatalf("expected one alias, got %d", len(store.variations))
	}
	v := store.variations[0]
	if v.FighterID != 7 || v.FullVariation != "Jonathan Jones" || v.VariationType != db.VariationAlias {
		t.Fatalf("unexpected alias %+v", v)
	}
}

func TestResolveOrCreate_LowConfidenceCreatesNew(t *testing.T) {
	t.Parallel()

	existing := &db.Fighter{FighterID: 9, FirstName: "John", LastName: "Johnson"}
	finder := &fakeFinder{fighter: existing, confidence: 0.65}
	store := &fakeRosterStore{}
	svc := New(finder, 0, zerolog.Nop())

	got, wasCreated, confidence, err := svc.ResolveOrCreate(context.Background(), store, Mention{
		FirstName: "Jon",
		LastName:  "Jones",
		Source:    "wikipedia",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wasCreated || confidence != 1.0 {
		t.Fatalf("expected a new fighter at full confidence, got created=%v confidence=%f", wasCreated, confidence)
	}
	if got.FighterID == 9 {
		t.Fatalf("low confidence match must not resolve to the existing fighter")
	}
	stats := svc.Stats()
	if stats.LowConfidenceMatches != 1 || stats.Created != 1 || stats.Matched != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestResolveOrCreate_WikipediaURLOverride(t *testing.T) {
	t.Parallel()

	owner := &db.Fighter{
		FighterID:    4,
		FirstName:    "Jon",
		LastName:     "Jones",
		WikipediaURL: strptr("https://en.wikipedia.org/wiki/Jon_Jones"),
		DataSource:   "wikipedia",
	}
	finder := &fakeFinder{fighter: nil, confidence: 0}
	store := &fakeRosterStore{byURL: owner}
	svc := New(finder, 0, zerolog.Nop())

	got, wasCreated, confidence, err := svc.ResolveOrCreate(context.Background(), store, Mention{
		FirstName:    "Jonny",
		LastName:     "Bones",
		WikipediaURL: *owner.WikipediaURL,
		Source:       "sherdog",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wasCreated || got.FighterID != 4 || confidence != 1.0 {
		t.Fatalf("expected url override to fighter 4, got created=%v id=%d confidence=%f", wasCreated, got.FighterID, confidence)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("url override must not create a fighter")
	}
	if len(store.variations) != 1 {
		t.Fatalf("expected the divergent literal name to be recorded as an alias")
	}
	stats := svc.Stats()
	if stats.DuplicateURLsFound != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestResolveOrCreate_CreatePopulatesProfile(t *testing.T) {
	t.Parallel()

	dob := time.Date(1988, 7, 19, 0, 0, 0, 0, time.UTC)
	store := &fakeRosterStore{}
	svc := New(&fakeFinder{}, 0, zerolog.Nop())

	got, wasCreated, _, err := svc.ResolveOrCreate(context.Background(), store, Mention{
		FirstName:   "Israel",
		LastName:    "Adesanya",
		Nickname:    "The Last Stylebender",
		Nationality: "Nigeria",
		DateOfBirth: &dob,
		Source:      "wikipedia",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wasCreated {
		t.Fatalf("expected a new fighter")
	}
	if got.Nickname == nil || got.Nationality == nil || got.DateOfBirth == nil {
		t.Fatalf("expected the mention profile to carry over, got %+v", got)
	}
	if got.DataSource != "wikipedia" {
		t.Fatalf("unexpected data source %q", got.DataSource)
	}
	if got.DataQualityScore <= 0 {
		t.Fatalf("expected a computed quality score, got %f", got.DataQualityScore)
	}
}

func TestResolveOrCreate_PassesMatchContext(t *testing.T) {
	t.Parallel()

	eventDate := time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC)
	finder := &fakeFinder{}
	svc := New(finder, 0, zerolog.Nop())

	_, _, _, err := svc.ResolveOrCreate(context.Background(), &fakeRosterStore{}, Mention{
		FirstName:   "Jon",
		Nationality: "USA",
	}, &eventDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finder.gotCtx == nil || finder.gotCtx.Nationality != "USA" || finder.gotCtx.EventDate == nil {
		t.Fatalf("expected nationality and event date to reach the matcher, got %+v", finder.gotCtx)
	}
}

func TestStatsReset(t *testing.T) {
	t.Parallel()

	svc := New(&fakeFinder{}, 0, zerolog.Nop())
	_, _, _, err := svc.ResolveOrCreate(context.Background(), &fakeRosterStore{}, Mention{FirstName: "Jon"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Stats().Created != 1 {
		t.Fatalf("expected one creation before reset")
	}
	svc.ResetStats()
	if svc.Stats() != (Stats{}) {
		t.Fatalf("expected zeroed stats after reset, got %+v", svc.Stats())
	}
}

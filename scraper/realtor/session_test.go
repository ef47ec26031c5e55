package realtor

import (
	"context"
	"testing"

	"realtor-scraper/models"
)

type fakeCollector struct {
	results map[string]TargetResult
	calls   []string
	limits  []int
}

func (f *fakeCollector) Collect(_ context.Context, target string, max int) TargetResult {
	f.calls = append(f.calls, target)
	f.limits = append(f.limits, max)
	res, ok := f.results[target]
	if !ok {
		return TargetResult{Target: target, State: StateAborted}
	}
	return res
}

type keyNormalizer struct{}

func (keyNormalizer) Normalize(raw models.RawCardFields) (*models.Listing, models.RejectReason) {
	if raw.NaturalKey == "" {
		return nil, models.RejectMissingKey
	}
	l := &models.Listing{NaturalKey: raw.NaturalKey, Address: raw.Address, Price: 1}
	if raw.Locality != "" {
		l.Locality = &raw.Locality
	}
	if raw.Region != "" {
		l.Region = &raw.Region
	}
	if raw.LocalImagePath != "" {
		l.LocalImagePath = &raw.LocalImagePath
	}
	return l, models.RejectNone
}

type recordingCheckpointer struct {
	sizes []int
}

func (r *recordingCheckpointer) Save(listings []*models.Listing) error {
	r.sizes = append(r.sizes, len(listings))
	return nil
}

type stubImages struct {
	fail map[string]bool
}

func (s stubImages) Download(_ context.Context, key, _ string) (string, bool) {
	if s.fail[key] {
		return "", false
	}
	return "images/" + key + ".jpg", true
}

func rawListings(keys ...string) []models.RawCardFields {
	out := make([]models.RawCardFields, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.RawCardFields{
			NaturalKey: k,
			Address:    k + " Queen St W, Toronto, ON M5H 2N2",
			Price:      models.FlexInt(100),
			ImageURI:   "https://cdn.test/" + k + ".jpg",
		})
	}
	return out
}

func sessionConfig() SessionConfig {
	return SessionConfig{MaxPerTarget: 500, CheckpointEvery: 2}
}

func TestSessionContinuesAfterAbortedTarget(t *testing.T) {
	collector := &fakeCollector{results: map[string]TargetResult{
		"Waterloo, ON": {Listings: rawListings("a", "b", "c"), State: StateExhausted, Pages: 1},
	}}
	s := NewSession(collector, keyNormalizer{}, nil, nil, sessionConfig(), testLogger())

	got := s.Run(context.Background(), []string{"Toronto, ON", "Waterloo, ON"}, 10, false)

	if len(got) != 3 {
		t.Fatalf("got %d listings; want 3", len(got))
	}
	if len(collector.calls) != 2 {
		t.Errorf("calls = %v", collector.calls)
	}
	st := s.Stats()
	if st.TargetsAborted != 1 || st.TargetsVisited != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSessionStopsAtTargetTotal(t *testing.T) {
	collector := &fakeCollector{results: map[string]TargetResult{
		"Toronto, ON":  {Listings: rawListings("a", "b", "c", "d"), State: StateExhausted},
		"Waterloo, ON": {Listings: rawListings("e"), State: StateExhausted},
	}}
	s := NewSession(collector, keyNormalizer{}, nil, nil, sessionConfig(), testLogger())

	got := s.Run(context.Background(), []string{"Toronto, ON", "Waterloo, ON"}, 3, false)

	if len(got) != 3 {
		t.Errorf("got %d listings; want 3", len(got))
	}
	if len(collector.calls) != 1 || collector.limits[0] != 3 {
		t.Errorf("calls=%v limits=%v", collector.calls, collector.limits)
	}
}

func TestSessionCapsPerTarget(t *testing.T) {
	collector := &fakeCollector{}
	cfg := sessionConfig()
	cfg.MaxPerTarget = 2
	s := NewSession(collector, keyNormalizer{}, nil, nil, cfg, testLogger())

	s.Run(context.Background(), []string{"Toronto, ON"}, 100, false)

	if collector.limits[0] != 2 {
		t.Errorf("limit = %d; want 2", collector.limits[0])
	}
}

func TestSessionCheckpointCadence(t *testing.T) {
	collector := &fakeCollector{results: map[string]TargetResult{
		"Toronto, ON": {Listings: rawListings("a", "b", "c", "d", "e"), State: StateExhausted},
	}}
	cp := &recordingCheckpointer{}
	s := NewSession(collector, keyNormalizer{}, cp, nil, sessionConfig(), testLogger())

	s.Run(context.Background(), []string{"Toronto, ON"}, 10, false)

	want := []int{2, 4, 5}
	if len(cp.sizes) != len(want) {
		t.Fatalf("checkpoints = %v; want %v", cp.sizes, want)
	}
	for i := range want {
		if cp.sizes[i] != want[i] {
			t.Errorf("checkpoint %d had %d listings; want %d", i, cp.sizes[i], want[i])
		}
	}
}

func TestSessionRejectsAndRepeats(t *testing.T) {
	raws := rawListings("a", "", "a")
	collector := &fakeCollector{results: map[string]TargetResult{
		"Toronto, ON": {Listings: raws, State: StateExhausted, Rejected: 2},
	}}
	s := NewSession(collector, keyNormalizer{}, nil, nil, sessionConfig(), testLogger())

	got := s.Run(context.Background(), []string{"Toronto, ON"}, 10, false)

	if len(got) != 2 {
		t.Errorf("got %d listings; want 2 (repeats are forwarded)", len(got))
	}
	st := s.Stats()
	if st.Rejected != 1 || st.Repeats != 1 || st.CardsRejected != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSessionImagesAreBestEffort(t *testing.T) {
	collector := &fakeCollector{results: map[string]TargetResult{
		"Toronto, ON": {Listings: rawListings("a", "b"), State: StateExhausted},
	}}
	images := stubImages{fail: map[string]bool{"b": true}}
	s := NewSession(collector, keyNormalizer{}, nil, images, sessionConfig(), testLogger())

	got := s.Run(context.Background(), []string{"Toronto, ON"}, 10, true)

	if len(got) != 2 {
		t.Fatalf("got %d listings; want 2", len(got))
	}
	if got[0].LocalImagePath == nil || *got[0].LocalImagePath != "images/a.jpg" {
		t.Errorf("first listing image path = %v", got[0].LocalImagePath)
	}
	if got[1].LocalImagePath != nil {
		t.Errorf("failed download should leave the path absent, got %q", *got[1].LocalImagePath)
	}
	if st := s.Stats(); st.ImagesSaved != 1 || st.ImagesFailed != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSessionDerivesPlace(t *testing.T) {
	collector := &fakeCollector{results: map[string]TargetResult{
		"Toronto, ON": {Listings: rawListings("a"), State: StateExhausted},
	}}
	s := NewSession(collector, keyNormalizer{}, nil, nil, sessionConfig(), testLogger())

	got := s.Run(context.Background(), []string{"Toronto, ON"}, 10, false)

	if got[0].Locality == nil || *got[0].Locality != "Toronto" || got[0].Region == nil || *got[0].Region != "ON" {
		t.Errorf("place = %v, %v", got[0].Locality, got[0].Region)
	}
}

func TestPlaceFromAddress(t *testing.T) {
	tests := []struct {
		address, target  string
		locality, region string
	}{
		{"9 Vandaam Lane, Toronto, ON M5V 2T6", "Waterloo, ON", "Toronto", "ON"},
		{"Unit 4, 12 King St, Ottawa, ON", "Toronto, ON", "Ottawa", "ON"},
		{"Lot 7 Concession Road", "Guelph, ON", "Guelph", "ON"},
		{"Lot 7 Concession Road", "Guelph", "Guelph", ""},
	}
	for _, tt := range tests {
		loc, reg := placeFromAddress(tt.address, tt.target)
		if loc != tt.locality || reg != tt.region {
			t.Errorf("placeFromAddress(%q, %q) = %q, %q; want %q, %q",
				tt.address, tt.target, loc, reg, tt.locality, tt.region)
		}
	}
}

func TestSessionNonPositiveTotal(t *testing.T) {
	for _, total := range []int{0, -1} {
		collector := &fakeCollector{results: map[string]TargetResult{
			"Toronto, ON": {Listings: rawListings("a"), State: StateExhausted},
		}}
		checkpoint := &recordingCheckpointer{}
		s := NewSession(collector, keyNormalizer{}, checkpoint, nil, sessionConfig(), testLogger())

		got := s.Run(context.Background(), []string{"Toronto, ON"}, total, false)

		if got == nil || len(got) != 0 {
			t.Errorf("total %d: got %v; want an empty result", total, got)
		}
		if len(collector.calls) != 0 || len(checkpoint.sizes) != 0 {
			t.Errorf("total %d: calls=%v checkpoints=%v; want none", total, collector.calls, checkpoint.sizes)
		}
	}
}

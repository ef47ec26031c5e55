package realtor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"realtor-scraper/scraper/browser"
	"realtor-scraper/utils"
)

// fakePage serves a fixed list of result pages. The first loadFailures
// navigations never show any cards.
type fakePage struct {
	pages        [][]string
	loadFailures int
	noSearchBox  bool
	noNext       bool
	clickErr     error

	navigations int
	submitted   []string
	clicks      int
	current     int
}

func (p *fakePage) loaded() bool {
	return p.navigations > p.loadFailures
}

func (p *fakePage) Navigate(string) error {
	p.navigations++
	p.current = 0
	return nil
}

func (p *fakePage) WaitPresent(sel string, _ time.Duration) bool {
	switch sel {
	case searchBox.Selectors[0]:
		return !p.noSearchBox
	case cardsPresentAt:
		return p.loaded() && len(p.pages[p.current]) > 0
	case nextPage.Selectors[0]:
		return !p.noNext
	}
	return false
}

func (p *fakePage) Cards(string) ([]browser.Card, error) {
	if !p.loaded() {
		return nil, nil
	}
	var cards []browser.Card
	for _, html := range p.pages[p.current] {
		c, err := browser.ParseCard(html)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (p *fakePage) ScrollToBottom() error { return nil }

func (p *fakePage) Submit(_, text string) error {
	p.submitted = append(p.submitted, text)
	return nil
}

func (p *fakePage) State(string) browser.ControlState {
	return browser.ControlState{Present: true, Disabled: p.current >= len(p.pages)-1}
}

func (p *fakePage) Click(string) error {
	if p.clickErr != nil {
		return p.clickErr
	}
	p.clicks++
	p.current++
	return nil
}

func testSettings() Settings {
	return Settings{
		SearchURL:    "https://example.test/map",
		LoadAttempts: 3,
		ClickRetries: 2,
		ScrollCycles: 2,
		MaxPages:     10,
	}
}

func testLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard, "error")
}

func pageOf(ids ...string) []string {
	var out []string
	for _, id := range ids {
		out = append(out, cardFixture(id, "$500,000", "1 Front St, Toronto, ON"))
	}
	return out
}

func TestCollectAbortsWhenLoadNeverSucceeds(t *testing.T) {
	page := &fakePage{pages: [][]string{pageOf("1", "2")}, loadFailures: 100}
	c := NewController(page, testSettings(), testLogger())

	res := c.Collect(context.Background(), "Toronto, ON", 50)

	if res.State != StateAborted {
		t.Errorf("State = %s; want aborted", res.State)
	}
	if len(res.Listings) != 0 {
		t.Errorf("got %d listings; want 0", len(res.Listings))
	}
	if res.Attempts != 3 || page.navigations != 3 {
		t.Errorf("attempts=%d navigations=%d; want 3 each", res.Attempts, page.navigations)
	}
}

func TestCollectRetriesThenWalksPages(t *testing.T) {
	page := &fakePage{
		pages:        [][]string{pageOf("1", "2"), pageOf("3", "4"), pageOf("5")},
		loadFailures: 1,
	}
	c := NewController(page, testSettings(), testLogger())

	res := c.Collect(context.Background(), "Waterloo, ON", 50)

	if res.State != StateExhausted {
		t.Errorf("State = %s; want exhausted", res.State)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d; want 2", res.Attempts)
	}
	if res.Pages != 3 || page.clicks != 2 {
		t.Errorf("pages=%d clicks=%d; want 3 and 2", res.Pages, page.clicks)
	}
	if len(res.Listings) != 5 {
		t.Fatalf("got %d listings; want 5", len(res.Listings))
	}
	if res.Listings[4].NaturalKey != "5" {
		t.Errorf("last listing key = %q", res.Listings[4].NaturalKey)
	}
	if len(page.submitted) != 2 || page.submitted[1] != "Waterloo, ON" {
		t.Errorf("submitted = %v", page.submitted)
	}
}

func TestCollectStopsAtListingCeiling(t *testing.T) {
	page := &fakePage{pages: [][]string{pageOf("1", "2"), pageOf("3", "4"), pageOf("5", "6")}}
	c := NewController(page, testSettings(), testLogger())

	res := c.Collect(context.Background(), "London, ON", 3)

	if len(res.Listings) != 3 {
		t.Errorf("got %d listings; want 3", len(res.Listings))
	}
	if res.Pages != 2 || res.State != StateExhausted {
		t.Errorf("pages=%d state=%s; want 2 and exhausted", res.Pages, res.State)
	}
}

func TestCollectStopsAtPageLimit(t *testing.T) {
	page := &fakePage{pages: [][]string{pageOf("1"), pageOf("2"), pageOf("3")}}
	settings := testSettings()
	settings.MaxPages = 2
	c := NewController(page, settings, testLogger())

	res := c.Collect(context.Background(), "Hamilton, ON", 0)

	if res.Pages != 2 || page.clicks != 1 || len(res.Listings) != 2 {
		t.Errorf("pages=%d clicks=%d listings=%d; want 2, 1, 2", res.Pages, page.clicks, len(res.Listings))
	}
}

func TestCollectTreatsNextPageFailuresAsLastPage(t *testing.T) {
	tests := []struct {
		name string
		page *fakePage
	}{
		{"no control", &fakePage{pages: [][]string{pageOf("1"), pageOf("2")}, noNext: true}},
		{"click fails", &fakePage{pages: [][]string{pageOf("1"), pageOf("2")}, clickErr: errors.New("detached")}},
		{"disabled", &fakePage{pages: [][]string{pageOf("1")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(tt.page, testSettings(), testLogger())
			res := c.Collect(context.Background(), "Ottawa, ON", 50)
			if res.State != StateExhausted || res.Pages != 1 || len(res.Listings) != 1 {
				t.Errorf("state=%s pages=%d listings=%d; want exhausted, 1, 1",
					res.State, res.Pages, len(res.Listings))
			}
		})
	}
}

func TestCollectCountsRejectedCards(t *testing.T) {
	cards := pageOf("1", "2")
	cards = append(cards, cardFixture("3", "Price on request", "1 Front St, Toronto, ON"))
	page := &fakePage{pages: [][]string{cards}}
	c := NewController(page, testSettings(), testLogger())

	res := c.Collect(context.Background(), "Guelph, ON", 50)

	if len(res.Listings) != 2 || res.Rejected != 1 {
		t.Errorf("listings=%d rejected=%d; want 2 and 1", len(res.Listings), res.Rejected)
	}
}

func TestCollectAbortsWithoutSearchBox(t *testing.T) {
	page := &fakePage{pages: [][]string{pageOf("1")}, noSearchBox: true}
	c := NewController(page, testSettings(), testLogger())

	res := c.Collect(context.Background(), "Kingston, ON", 50)

	if res.State != StateAborted || len(page.submitted) != 0 {
		t.Errorf("state=%s submitted=%v", res.State, page.submitted)
	}
}

func TestCollectHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &fakePage{pages: [][]string{pageOf("1")}}
	c := NewController(page, testSettings(), testLogger())

	res := c.Collect(ctx, "Oshawa, ON", 50)

	if res.State != StateAborted || page.navigations != 0 {
		t.Errorf("state=%s navigations=%d", res.State, page.navigations)
	}
}

package realtor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realtor-scraper/models"
	"realtor-scraper/scraper/browser"
	"realtor-scraper/utils"
)

// State is a step of the per-target pagination machine.
type State int

const (
	StateInit State = iota
	StatePageLoading
	StateCardsPresent
	StateExtracting
	StateNextPage
	StateExhausted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePageLoading:
		return "page-loading"
	case StateCardsPresent:
		return "cards-present"
	case StateExtracting:
		return "extracting"
	case StateNextPage:
		return "next-page"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Settings bound every wait the controller performs.
type Settings struct {
	SearchURL    string
	LoadAttempts int
	ClickRetries int
	RetryDelay   time.Duration
	SettleDelay  time.Duration
	LocateWait   time.Duration
	CardWait     time.Duration
	NextWait     time.Duration
	ScrollCycles int
	ScrollDelay  time.Duration
	MaxPages     int
}

// DefaultSettings mirrors the pacing that keeps realtor.ca responsive.
func DefaultSettings() Settings {
	return Settings{
		SearchURL:    siteOrigin + "/map#view=list",
		LoadAttempts: 5,
		ClickRetries: 2,
		RetryDelay:   2 * time.Second,
		SettleDelay:  3 * time.Second,
		LocateWait:   5 * time.Second,
		CardWait:     15 * time.Second,
		NextWait:     10 * time.Second,
		ScrollCycles: 5,
		ScrollDelay:  1500 * time.Millisecond,
		MaxPages:     10,
	}
}

// LoadResult reports how the load phase of one target went.
type LoadResult struct {
	Attempts int
	Loaded   bool
}

// TargetResult is everything collected for one search target. Listings may
// hold repeats when a page was reread; uniqueness is enforced downstream.
type TargetResult struct {
	Target   string
	Listings []models.RawCardFields
	Pages    int
	State    State
	Attempts int
	Rejected int
}

var (
	errNoSearchBox  = errors.New("search box not found")
	errCardsTimeout = errors.New("timed out waiting for listing cards")
)

// Controller drives one Page through the search view of each target.
type Controller struct {
	page      browser.Page
	extractor Extractor
	settings  Settings
	load      *utils.Policy
	click     *utils.Policy
	logger    *utils.Logger
}

// NewController creates a Controller that owns page for its lifetime.
func NewController(page browser.Page, settings Settings, logger *utils.Logger) *Controller {
	return &Controller{
		page:     page,
		settings: settings,
		load: &utils.Policy{
			MaxAttempts: settings.LoadAttempts,
			MinDelay:    settings.RetryDelay,
			MaxDelay:    settings.RetryDelay,
			Logger:      logger,
		},
		click: &utils.Policy{
			MaxAttempts: settings.ClickRetries,
			MinDelay:    settings.ScrollDelay,
			MaxDelay:    settings.ScrollDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Collect runs the pagination machine for target until maxListings cards
// were extracted (no cap when <= 0), the pages run out or loading fails.
// It never returns an error: an aborted target yields what it already had.
func (c *Controller) Collect(ctx context.Context, target string, maxListings int) TargetResult {
	res := TargetResult{Target: target, State: StateInit}
	page := 1
	state := StatePageLoading

	for {
		if ctx.Err() != nil && state != StateExhausted && state != StateAborted {
			c.logger.Warn("[%s] %s: interrupted in state %s", platform, target, state)
			state = StateAborted
		}

		switch state {
		case StatePageLoading:
			lr := c.loadTarget(ctx, target)
			res.Attempts = lr.Attempts
			if !lr.Loaded {
				c.logger.Error("[%s] %s: failed to load after %d attempts, skipping", platform, target, lr.Attempts)
				state = StateAborted
				continue
			}
			state = StateCardsPresent

		case StateCardsPresent:
			c.scroll(ctx)
			state = StateExtracting

		case StateExtracting:
			res.Pages = page
			added := c.extractPage(&res, maxListings)
			c.logger.Info("[%s] %s: page %d gave %d listings (total %d)",
				platform, target, page, added, len(res.Listings))

			switch {
			case maxListings > 0 && len(res.Listings) >= maxListings:
				c.logger.Info("[%s] %s: reached ceiling of %d listings", platform, target, maxListings)
				state = StateExhausted
			case c.settings.MaxPages > 0 && page >= c.settings.MaxPages:
				c.logger.Info("[%s] %s: reached page limit %d", platform, target, c.settings.MaxPages)
				state = StateExhausted
			default:
				state = StateNextPage
			}

		case StateNextPage:
			if !c.advance(ctx, target, page) {
				state = StateExhausted
				continue
			}
			page++
			state = StateCardsPresent

		case StateExhausted, StateAborted:
			res.State = state
			return res

		default:
			state = StateAborted
		}
	}
}

// loadTarget navigates to the search view, enters target and waits for the
// result cards. Each failed step costs one attempt of the load policy.
func (c *Controller) loadTarget(ctx context.Context, target string) LoadResult {
	attempts, err := c.load.Do(ctx, "load "+target, func(attempt int) error {
		c.logger.Debug("[%s] %s: load attempt %d", platform, target, attempt)

		if err := c.page.Navigate(c.settings.SearchURL); err != nil {
			return err
		}

		sel, ok := searchBox.Locate(c.page, c.settings.LocateWait)
		if !ok {
			return errNoSearchBox
		}
		if err := c.page.Submit(sel, target); err != nil {
			return err
		}
		if err := utils.Sleep(ctx, c.settings.SettleDelay); err != nil {
			return err
		}

		if c.page.WaitPresent(cardsPresentAt, c.settings.CardWait) {
			return nil
		}
		// the wait can miss cards that rendered before it started
		if cards, err := c.page.Cards(cardClass); err == nil && len(cards) > 0 {
			return nil
		}
		return errCardsTimeout
	})
	return LoadResult{Attempts: attempts, Loaded: err == nil}
}

// scroll triggers lazy rendering. A failed scroll ends the cycles early but
// extraction still runs on whatever is on the page.
func (c *Controller) scroll(ctx context.Context) {
	for i := 0; i < c.settings.ScrollCycles; i++ {
		if err := c.page.ScrollToBottom(); err != nil {
			c.logger.Warn("[%s] scroll failed, continuing with loaded cards: %v", platform, err)
			return
		}
		if utils.Sleep(ctx, c.settings.ScrollDelay) != nil {
			return
		}
	}
}

// extractPage appends every usable card of the current page to res and
// returns how many were added.
func (c *Controller) extractPage(res *TargetResult, maxListings int) int {
	cards, err := c.page.Cards(cardClass)
	if err != nil {
		c.logger.Warn("[%s] %s: could not read cards: %v", platform, res.Target, err)
		return 0
	}

	added := 0
	for i, card := range cards {
		if maxListings > 0 && len(res.Listings) >= maxListings {
			break
		}
		raw, ok := c.extractor.Extract(card)
		if !ok {
			res.Rejected++
			c.logger.Debug("[%s] %s: card %d rejected (missing price or address)", platform, res.Target, i+1)
			continue
		}
		res.Listings = append(res.Listings, raw)
		added++
	}
	return added
}

// advance moves to the next result page. A missing, disabled or unclickable
// control means the last page was reached.
func (c *Controller) advance(ctx context.Context, target string, page int) bool {
	if err := c.page.ScrollToBottom(); err == nil {
		_ = utils.Sleep(ctx, c.settings.ScrollDelay)
	}

	sel, ok := nextPage.Locate(c.page, c.settings.LocateWait)
	if !ok {
		c.logger.Info("[%s] %s: no next-page control, assuming last page", platform, target)
		return false
	}
	if st := c.page.State(sel); !st.Usable() {
		c.logger.Info("[%s] %s: next-page control disabled, reached last page", platform, target)
		return false
	}

	if _, err := c.click.Do(ctx, "next page", func(int) error {
		return c.page.Click(sel)
	}); err != nil {
		c.logger.Warn("[%s] %s: could not click next page: %s", platform, target, utils.Truncate(err.Error(), 100))
		return false
	}

	if err := utils.Sleep(ctx, c.settings.SettleDelay); err != nil {
		return false
	}
	if !c.page.WaitPresent(cardsPresentAt, c.settings.NextWait) {
		c.logger.Warn("[%s] %s: timed out waiting for page %d, continuing", platform, target, page+1)
	}
	return true
}

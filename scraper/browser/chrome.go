package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configure the headless browser.
type Options struct {
	ChromeBin       string
	Headless        bool
	ActionTimeout   time.Duration
	NavigateTimeout time.Duration
}

// ChromePage is a Page driving a single exclusively-owned Chrome tab.
type ChromePage struct {
	ctx           context.Context
	cancel        context.CancelFunc
	cancelAlloc   context.CancelFunc
	actionTimeout time.Duration
	navTimeout    time.Duration
}

// Launch starts Chrome and opens the tab. Failure here is fatal to a session.
func Launch(parent context.Context, o Options) (*ChromePage, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-geolocation", true),
		chromedp.UserAgent(defaultUserAgent),
	)
	if bin := findChromeBinary(o.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// The first Run allocates the browser; it must not carry a timeout or the
	// tab would be torn down with it.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: launch chrome: %w", err)
	}

	p := &ChromePage{
		ctx:           tabCtx,
		cancel:        cancelTab,
		cancelAlloc:   cancelAlloc,
		actionTimeout: o.ActionTimeout,
		navTimeout:    o.NavigateTimeout,
	}
	if p.actionTimeout <= 0 {
		p.actionTimeout = 15 * time.Second
	}
	if p.navTimeout <= 0 {
		p.navTimeout = 60 * time.Second
	}
	return p, nil
}

// Close shuts the browser down. Safe to call more than once.
func (p *ChromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	p.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("browser: close: %w", err)
	}
	return nil
}

func (p *ChromePage) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (p *ChromePage) Navigate(url string) error {
	if err := p.run(p.navTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

func (p *ChromePage) WaitPresent(selector string, timeout time.Duration) bool {
	return p.run(timeout, chromedp.WaitReady(selector, chromedp.ByQuery)) == nil
}

func (p *ChromePage) Cards(class string) ([]Card, error) {
	var fragments []string
	script := fmt.Sprintf(`Array.from(document.getElementsByClassName(%s)).map(function(e){return e.outerHTML;})`,
		jsString(class))
	if err := p.run(p.actionTimeout, chromedp.Evaluate(script, &fragments)); err != nil {
		return nil, fmt.Errorf("browser: read cards: %w", err)
	}

	cards := make([]Card, 0, len(fragments))
	for _, f := range fragments {
		c, err := ParseCard(f)
		if err != nil {
			continue
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (p *ChromePage) ScrollToBottom() error {
	return p.run(p.actionTimeout,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (p *ChromePage) Submit(selector, text string) error {
	err := p.run(p.actionTimeout,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text+kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("browser: submit %q: %w", text, err)
	}
	return nil
}

func (p *ChromePage) State(selector string) ControlState {
	var st struct {
		Present  bool `json:"present"`
		Disabled bool `json:"disabled"`
		Hidden   bool `json:"hidden"`
	}
	script := fmt.Sprintf(`(function() {
		var el = document.querySelector(%s);
		if (!el) return {present: false, disabled: false, hidden: false};
		var style = el.getAttribute('style') || '';
		return {
			present:  true,
			disabled: el.hasAttribute('disabled') || el.getAttribute('aria-disabled') === 'true',
			hidden:   style.replace(/\s/g, '').indexOf('display:none') !== -1
		};
	})()`, jsString(selector))
	if err := p.run(p.actionTimeout, chromedp.Evaluate(script, &st)); err != nil {
		return ControlState{}
	}
	return ControlState{Present: st.Present, Disabled: st.Disabled, Hidden: st.Hidden}
}

func (p *ChromePage) Click(selector string) error {
	var clicked bool
	script := fmt.Sprintf(`(function() {
		var el = document.querySelector(%s);
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, jsString(selector))
	if err := p.run(p.actionTimeout, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	if !clicked {
		return fmt.Errorf("browser: click %s: element not found", selector)
	}
	return nil
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

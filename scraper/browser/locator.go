package browser

import "time"

// Locator resolves a UI role (search box, next-page control) by trying an
// ordered list of selectors. The first selector that matches wins, so the
// order encodes preference.
type Locator struct {
	Role      string
	Selectors []string
}

// Locate returns the first selector present on page within timeout per
// strategy, and false when none matched.
func (l Locator) Locate(page Page, timeout time.Duration) (string, bool) {
	for _, sel := range l.Selectors {
		if page.WaitPresent(sel, timeout) {
			return sel, true
		}
	}
	return "", false
}

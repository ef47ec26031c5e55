package browser

import "time"

// ControlState describes a clickable control such as the next-page link.
type ControlState struct {
	Present  bool
	Disabled bool
	Hidden   bool
}

// Usable reports whether the control can be clicked.
func (s ControlState) Usable() bool {
	return s.Present && !s.Disabled && !s.Hidden
}

// Page is the page-object contract the scraper drives. Implementations are
// expected to be unstable in the face of markup drift, so every method
// reports failure as a value and never panics.
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(url string) error
	// WaitPresent waits up to timeout for selector to match an element.
	WaitPresent(selector string, timeout time.Duration) bool
	// Cards returns a snapshot of every element carrying class.
	Cards(class string) ([]Card, error)
	// ScrollToBottom scrolls the document to its end to trigger lazy loading.
	ScrollToBottom() error
	// Submit clicks selector, replaces its value with text and presses Enter.
	Submit(selector, text string) error
	// State inspects the control matched by selector.
	State(selector string) ControlState
	// Click scrolls selector into view and clicks it via script.
	Click(selector string) error
}

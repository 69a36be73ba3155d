// Package browser owns the shared headless browser process, gates concurrent
// page work behind a fixed number of slots and exposes pages through small
// interfaces so page logic can run against fakes in tests.
package browser

import (
	"context"
	"errors"

	"github.com/ysmood/gson"
)

var (
	// ErrElementNotFound is returned by Page.Find when no element matches
	ErrElementNotFound = errors.New("browser: element not found")
	// ErrLaunchFailed wraps any failure to start the browser process
	ErrLaunchFailed = errors.New("browser: launch failed")
	// ErrSessionClosed is returned after Close
	ErrSessionClosed = errors.New("browser: session closed")
)

// Cookie is set on a page before or after navigation
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	URL    string
}

// Page is one browser tab scoped to a single job visit
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	HTML(ctx context.Context) (string, error)
	// Eval runs a JS function expression, e.g. `(a) => a + 1`, with args
	Eval(ctx context.Context, js string, args ...interface{}) (gson.JSON, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	// Find returns the first element matching selector without waiting
	Find(ctx context.Context, selector string) (Element, error)
	Close() error
}

// Element is a DOM element on a Page
type Element interface {
	Visible() (bool, error)
	Size() (width, height float64, err error)
	// Resource returns the exact bytes behind the element's src
	Resource() ([]byte, error)
	Screenshot() ([]byte, error)
	// Fill replaces the element's value with text
	Fill(text string) error
	Click() error
	PressEnter() error
}

// PageFunc is the work done on a page during one visit
type PageFunc func(ctx context.Context, page Page) error

// Visitor runs fn on a fresh page while holding a slot. Implemented by
// Session; the slot is released and the page closed on every path.
type Visitor interface {
	Visit(ctx context.Context, jobID string, fn PageFunc) error
}

// Package browsertest provides in-memory fakes of browser.Page and
// browser.Element for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"

	"github.com/ysmood/gson"

	"jobleads/internal/scraper/browser"
)

// ScriptFunc answers one Eval call
type ScriptFunc func(args ...interface{}) (interface{}, error)

// Page is a scriptable browser.Page. Eval answers are registered per script
// text; unknown scripts return null.
type Page struct {
	mu sync.Mutex

	CurrentURL string
	Content    string
	NavigateFn func(url string) error

	scripts  map[string]ScriptFunc
	elements map[string]*Element

	Navigations []string
	Evaluated   []string
	Cookies     []browser.Cookie
	Closed      bool
}

func NewPage(url string) *Page {
	return &Page{
		CurrentURL: url,
		scripts:    make(map[string]ScriptFunc),
		elements:   make(map[string]*Element),
	}
}

// OnEval registers the answer for a script
func (p *Page) OnEval(js string, fn ScriptFunc) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[js] = fn
	return p
}

// ReturnOnEval registers a constant answer for a script
func (p *Page) ReturnOnEval(js string, value interface{}) *Page {
	return p.OnEval(js, func(...interface{}) (interface{}, error) { return value, nil })
}

// AddElement makes el the match for selector
func (p *Page) AddElement(selector string, el *Element) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = el
	return el
}

// RemoveElement drops the match for selector
func (p *Page) RemoveElement(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// EvalCount returns how often js was evaluated
func (p *Page) EvalCount(js string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.Evaluated {
		if s == js {
			n++
		}
	}
	return n
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	fn := p.NavigateFn
	p.Navigations = append(p.Navigations, url)
	p.mu.Unlock()

	if fn != nil {
		if err := fn(url); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.CurrentURL = url
	p.mu.Unlock()
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Content, nil
}

func (p *Page) Eval(ctx context.Context, js string, args ...interface{}) (gson.JSON, error) {
	if err := ctx.Err(); err != nil {
		return gson.New(nil), err
	}
	p.mu.Lock()
	p.Evaluated = append(p.Evaluated, js)
	fn, ok := p.scripts[js]
	p.mu.Unlock()

	if !ok {
		return gson.New(nil), nil
	}
	v, err := fn(args...)
	return gson.New(v), err
}

func (p *Page) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cookies = append(p.Cookies, cookies...)
	return nil
}

func (p *Page) Find(ctx context.Context, selector string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[selector]
	if !ok || el.Detached() {
		return nil, browser.ErrElementNotFound
	}
	return el, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Element is a scriptable browser.Element
type Element struct {
	mu sync.Mutex

	visible  bool
	detached bool
	Width    float64
	Height   float64

	ResourceBytes   []byte
	ResourceErr     error
	ScreenshotBytes []byte

	// OnClick and OnEnter run after the click or key press is recorded
	OnClick  func()
	OnEnter  func()
	ClickErr error

	Value  string
	Filled []string
	Clicks int
	Enters int
}

// NewElement returns a visible element of the given size
func NewElement(width, height float64) *Element {
	return &Element{visible: true, Width: width, Height: height}
}

// SetVisible toggles visibility
func (e *Element) SetVisible(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = v
}

// Detach makes the element disappear from Find results
func (e *Element) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detached = true
}

func (e *Element) Detached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detached
}

func (e *Element) Visible() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible && !e.detached, nil
}

func (e *Element) Size() (float64, float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Width, e.Height, nil
}

func (e *Element) Resource() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ResourceErr != nil {
		return nil, e.ResourceErr
	}
	if e.ResourceBytes == nil {
		return nil, errors.New("no resource")
	}
	return e.ResourceBytes, nil
}

func (e *Element) Screenshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ScreenshotBytes == nil {
		return nil, errors.New("no screenshot")
	}
	return e.ScreenshotBytes, nil
}

func (e *Element) Fill(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Value = text
	e.Filled = append(e.Filled, text)
	return nil
}

func (e *Element) Click() error {
	e.mu.Lock()
	e.Clicks++
	err := e.ClickErr
	fn := e.OnClick
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) PressEnter() error {
	e.mu.Lock()
	e.Enters++
	fn := e.OnEnter
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// CurrentValue returns the last filled value
func (e *Element) CurrentValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value
}

// Visitor runs PageFuncs against pages built by NewPageFn, holding a real
// browser.Slots slot for the duration.
type Visitor struct {
	Slots     *browser.Slots
	NewPageFn func(jobID string) (browser.Page, error)

	mu     sync.Mutex
	Visits []string
}

func (v *Visitor) Visit(ctx context.Context, jobID string, fn browser.PageFunc) error {
	if v.Slots != nil {
		if err := v.Slots.Acquire(ctx); err != nil {
			return err
		}
		defer v.Slots.Release()
	}

	v.mu.Lock()
	v.Visits = append(v.Visits, jobID)
	v.mu.Unlock()

	page, err := v.NewPageFn(jobID)
	if err != nil {
		return err
	}
	defer page.Close()
	return fn(ctx, page)
}

// VisitCount returns how many visits were started
func (v *Visitor) VisitCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.Visits)
}

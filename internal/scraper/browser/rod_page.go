package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// rodPage adapts a rod page to Page
type rodPage struct {
	page       *rod.Page
	router     *rod.HijackRouter
	navTimeout time.Duration
	onClose    func()
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	timeout := p.navTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load of %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Eval(ctx context.Context, js string, args ...interface{}) (gson.JSON, error) {
	res, err := p.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

func (p *rodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			URL:    c.URL,
		})
	}
	return p.page.Context(ctx).SetCookies(params)
}

func (p *rodPage) Find(ctx context.Context, selector string) (Element, error) {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrElementNotFound
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	err := p.page.Close()
	if p.onClose != nil {
		p.onClose()
	}
	return err
}

// rodElement adapts a rod element to Element
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) Size() (float64, float64, error) {
	shape, err := e.el.Shape()
	if err != nil {
		return 0, 0, err
	}
	box := shape.Box()
	if box == nil {
		return 0, 0, nil
	}
	return box.Width, box.Height, nil
}

func (e *rodElement) Resource() ([]byte, error) {
	return e.el.Resource()
}

func (e *rodElement) Screenshot() ([]byte, error) {
	return e.el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}

func (e *rodElement) Fill(text string) error {
	return fill(e.el, text)
}

// textInput is the part of *rod.Element that Fill drives
type textInput interface {
	SelectAllText() error
	Input(text string) error
}

// fill selects the current value so Input overwrites it instead of
// appending to it
func fill(el textInput, text string) error {
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select input text: %w", err)
	}
	return el.Input(text)
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) PressEnter() error {
	if err := e.el.Focus(); err != nil {
		return err
	}
	return e.el.Page().Keyboard.Press(input.Enter)
}

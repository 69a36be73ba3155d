package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"jobleads/internal/config"
	"jobleads/internal/logging"
)

type stubPage struct {
	closed int
}

func (p *stubPage) Navigate(context.Context, string) error        { return nil }
func (p *stubPage) URL() string                                   { return "about:blank" }
func (p *stubPage) HTML(context.Context) (string, error)          { return "", nil }
func (p *stubPage) SetCookies(context.Context, []Cookie) error    { return nil }
func (p *stubPage) Find(context.Context, string) (Element, error) { return nil, ErrElementNotFound }
func (p *stubPage) Close() error                                  { p.closed++; return nil }

func (p *stubPage) Eval(context.Context, string, ...interface{}) (gson.JSON, error) {
	return gson.New(nil), nil
}

func newTestSession(t *testing.T, slots int) *Session {
	t.Helper()
	return NewSession(config.BrowserConfig{SlotCount: slots}, logging.NewNopLogger())
}

func TestVisitAfterCloseReleasesSlot(t *testing.T) {
	s := newTestSession(t, 6)
	require.NoError(t, s.Close())

	called := false
	for i := 0; i < 10; i++ {
		err := s.Visit(context.Background(), "job-1", func(context.Context, Page) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrSessionClosed)
	}

	assert.False(t, called)
	stats := s.Metrics().Slots
	assert.Equal(t, int64(0), stats.InUse)
	assert.Equal(t, int64(10), stats.Acquired)
}

func TestVisitReleasesSlotWhenWorkPanics(t *testing.T) {
	s := newTestSession(t, 1)
	page := &stubPage{}
	s.openPage = func(context.Context, string) (Page, error) { return page, nil }

	assert.Panics(t, func() {
		_ = s.Visit(context.Background(), "job-1", func(context.Context, Page) error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, page.closed)
	assert.Equal(t, int64(0), s.slots.Stats().InUse)

	// the only slot is free again
	err := s.Visit(context.Background(), "job-2", func(context.Context, Page) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 2, page.closed)
}

func TestVisitReturnsWorkError(t *testing.T) {
	s := newTestSession(t, 2)
	page := &stubPage{}
	s.openPage = func(context.Context, string) (Page, error) { return page, nil }
	errWork := errors.New("work failed")

	err := s.Visit(context.Background(), "job-1", func(context.Context, Page) error { return errWork })

	assert.ErrorIs(t, err, errWork)
	assert.Equal(t, 1, page.closed)
	assert.Equal(t, int64(0), s.slots.Stats().InUse)
}

func TestHealthyWithoutBrowser(t *testing.T) {
	s := newTestSession(t, 1)
	assert.False(t, s.Healthy())

	require.NoError(t, s.Close())
	assert.False(t, s.Healthy())
	assert.False(t, s.Metrics().Alive)
}

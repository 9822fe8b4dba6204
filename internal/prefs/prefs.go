// Package prefs is the per-visitor key/value preference store. Values are
// JSON text; every failure degrades to a no-op.
package prefs

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Well-known keys.
const (
	KeyTheme        = "theme"
	KeyLastVisit    = "lastVisit"
	KeyView         = "view"
	KeyVisitedPages = "visitedPages"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrUnavailable is returned by stores that are disabled or closed.
var ErrUnavailable = errors.New("preference storage unavailable")

// Store is a synchronous string-to-string store scoped to one visitor.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Updater is implemented by stores that can read-modify-write one key
// without interleaving with other updates of the same scope.
type Updater interface {
	Update(key string, fn func(value string, ok bool) (string, error)) error
}

// Preferences layers JSON encoding and failure isolation over a Store.
type Preferences struct {
	store  Store
	logger *zap.Logger
}

// New wraps store. A nil store behaves as permanently unavailable.
func New(store Store, logger *zap.Logger) *Preferences {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preferences{store: store, logger: logger}
}

// Save stores v under key. It reports whether the write happened.
func (p *Preferences) Save(key string, v any) bool {
	if p.store == nil {
		return false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("preference encode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := p.store.Set(key, string(raw)); err != nil {
		p.logger.Warn("preference save failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Load decodes the value under key into v. It reports false when the key is
// absent, unreadable or not valid JSON for v.
func (p *Preferences) Load(key string, v any) bool {
	if p.store == nil {
		return false
	}
	raw, ok, err := p.store.Get(key)
	if err != nil {
		p.logger.Warn("preference load failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		p.logger.Warn("preference decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key.
func (p *Preferences) Remove(key string) bool {
	if p.store == nil {
		return false
	}
	if err := p.store.Remove(key); err != nil {
		p.logger.Warn("preference remove failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Theme returns the saved theme, light by default.
func (p *Preferences) Theme() string {
	var theme string
	if p.Load(KeyTheme, &theme) && theme == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// SetTheme stores theme.
func (p *Preferences) SetTheme(theme string) bool {
	return p.Save(KeyTheme, theme)
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Preferences) ToggleTheme() string {
	next := ThemeDark
	if p.Theme() == ThemeDark {
		next = ThemeLight
	}
	p.SetTheme(next)
	return next
}

// ViewMode returns the saved directory view, or "" when none is stored.
func (p *Preferences) ViewMode() string {
	var mode string
	p.Load(KeyView, &mode)
	return mode
}

// SetViewMode stores the directory view.
func (p *Preferences) SetViewMode(mode string) bool {
	return p.Save(KeyView, mode)
}

// LastVisit returns the previous visit time, if any. It is stored as Unix
// milliseconds.
func (p *Preferences) LastVisit() (time.Time, bool) {
	var ms int64
	if !p.Load(KeyLastVisit, &ms) || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// TouchLastVisit records now as the latest visit.
func (p *Preferences) TouchLastVisit(now time.Time) bool {
	return p.Save(KeyLastVisit, now.UnixMilli())
}

// VisitedPages returns the pages seen by this visitor in first-visit order.
func (p *Preferences) VisitedPages() []string {
	var pages []string
	p.Load(KeyVisitedPages, &pages)
	return pages
}

// AddVisitedPage appends page once. Concurrent calls for one visitor keep
// every page when the store is an Updater; other stores may drop one of two
// racing entries.
func (p *Preferences) AddVisitedPage(page string) bool {
	return p.update(KeyVisitedPages, func(raw string, ok bool) (string, error) {
		var pages []string
		if ok && json.Unmarshal([]byte(raw), &pages) != nil {
			pages = nil
		}
		for _, seen := range pages {
			if seen == page {
				return raw, nil
			}
		}
		b, err := json.Marshal(append(pages, page))
		return string(b), err
	})
}

func (p *Preferences) update(key string, fn func(raw string, ok bool) (string, error)) bool {
	if p.store == nil {
		return false
	}
	u, atomic := p.store.(Updater)
	if !atomic {
		u = plainUpdater{p.store}
	}
	if err := u.Update(key, fn); err != nil {
		p.logger.Warn("preference update failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

type plainUpdater struct {
	store Store
}

func (u plainUpdater) Update(key string, fn func(string, bool) (string, error)) error {
	old, ok, err := u.store.Get(key)
	if err != nil {
		return err
	}
	v, err := fn(old, ok)
	if err != nil {
		return err
	}
	return u.store.Set(key, v)
}

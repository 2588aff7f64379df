package render

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/pkg/browser"
)

type Renderer interface {
	Render(v View) error
}

// Func adapts a plain function to Renderer.
type Func func(v View) error

func (f Func) Render(v View) error { return f(v) }

// Multi renders to every renderer and joins their errors.
type Multi []Renderer

func (m Multi) Render(v View) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var openURL = browser.OpenURL

// Open shows an item in the system browser. Only http and https URLs are
// opened.
func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q (only http/https allowed)", u.Scheme)
	}
	return openURL(u.String())
}

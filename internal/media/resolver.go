package media

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
)

// Resolver turns a stored photo reference into an absolute URL.
type Resolver interface {
	Resolve(ref string) string
}

// Passthrough returns references unchanged.
type Passthrough struct{}

func (Passthrough) Resolve(ref string) string { return ref }

func isAbsolute(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.IsAbs() && u.Host != ""
}

// BaseURL resolves relative references (e.g. "/uploads/a.jpg") against a base URL.
type BaseURL struct {
	base *url.URL
}

func NewBaseURL(raw string) (*BaseURL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse media base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("media base url must be absolute: %q", raw)
	}
	// keep any path prefix when resolving
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &BaseURL{base: u}, nil
}

func (b *BaseURL) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || isAbsolute(ref) {
		return ref
	}
	rel, err := url.Parse(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return ref
	}
	return b.base.ResolveReference(rel).String()
}

// Cloudinary resolves bare public ids ("venues/venue_12_image_1") into
// delivery URLs. Absolute URLs pass through and path-like references
// (leading "/") go to the fallback.
type Cloudinary struct {
	cld      *cloudinary.Cloudinary
	fallback Resolver
}

func NewCloudinary(cloudinaryURL string, fallback Resolver) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	cld.Config.URL.Analytics = false

	if fallback == nil {
		fallback = Passthrough{}
	}
	return &Cloudinary{cld: cld, fallback: fallback}, nil
}

func (c *Cloudinary) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "", isAbsolute(ref):
		return ref
	case strings.HasPrefix(ref, "/"):
		return c.fallback.Resolve(ref)
	}

	img, err := c.cld.Image(ref)
	if err != nil {
		return c.fallback.Resolve(ref)
	}
	out, err := img.String()
	if err != nil || out == "" {
		return c.fallback.Resolve(ref)
	}
	return out
}

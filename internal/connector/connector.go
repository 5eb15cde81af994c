// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package connector discovers published documents on municipal publishing
// platforms. Each platform has one Connector implementation; all of them
// share the safe fetch layer and the text heuristics for committee names,
// dates, and document types.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kaamos-labs/watchdog/internal/httputil"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

// Platform identifiers, as stored in sources.platform.
const (
	PlatformCloudNC = "cloudnc"
	PlatformDynasty = "dynasty"
	PlatformTWeb    = "tweb"
	PlatformWebsite = "municipal_website"
)

// ErrUnsupportedPlatform marks a source whose platform has no registered
// connector. Discovery reports it as a skip, not a source failure.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Fetcher is the slice of the fetch layer connectors need. *httputil.Fetcher
// satisfies it; tests substitute a fake serving canned pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*httputil.Response, error)
}

// Connector discovers documents from one configured source.
type Connector interface {
	PlatformName() string
	Discover(ctx context.Context) ([]types.DocumentRef, error)
}

// registry maps platform names to constructors. Adding a platform means
// adding one entry here and one implementation file.
var registry = map[string]func(types.Source, Fetcher) (Connector, error){
	PlatformCloudNC: newCloudNC,
	PlatformDynasty: newDynasty,
	PlatformTWeb:    newTWeb,
	PlatformWebsite: newWebsite,
}

// New returns the connector for the source's platform. An unknown platform
// yields an error wrapping ErrUnsupportedPlatform so callers can
// distinguish it from a runtime failure.
func New(src types.Source, f Fetcher) (Connector, error) {
	ctor, ok := registry[src.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, src.Platform)
	}
	return ctor(src, f)
}

// Platforms lists the registered platform names, sorted.
func Platforms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

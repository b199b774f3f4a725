// service.go is the discovery front door: it fans a query out across the
// configured sources, funnels per-source failures into a structured error
// list, caches results per (source, tag) key, and keeps ordering
// deterministic.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/devforge-io/devforge/internal/model"
)

// DefaultTimeout bounds every remote call. After this the call fails with
// a timeout error rather than hanging; retry is caller policy, not ours.
const DefaultTimeout = 30 * time.Second

// LegacyTagSuffix forms the secondary fallback tag tried when the primary
// tag yields zero results from a healthy source. Organizations that
// predate the current tag convention still publish under "<tag>-legacy".
const LegacyTagSuffix = "-legacy"

// SourceError describes a failure scoped to one source or one package
// within a source. Warning-level entries (a single unreadable archive)
// do not mean the source as a whole failed.
type SourceError struct {
	// Source is the SourceRef display form ("local:/path" or "remote:url").
	Source string `json:"source"`

	// Package names the affected package file, when the failure is
	// per-package rather than per-source.
	Package string `json:"package,omitempty"`

	// Warning marks per-package failures that did not abort the source scan.
	Warning bool `json:"warning,omitempty"`

	// Message is the human-readable failure description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e SourceError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Package, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

// Service discovers template packages across local and remote sources.
// Construct with NewService; the zero value is not usable.
type Service struct {
	cache  Cache
	client *http.Client
	logger *log.Logger

	// group serializes cache fills per key: concurrent callers for the
	// same (source, tag) key share one in-flight fetch.
	group singleflight.Group
}

// NewService creates a discovery Service. A nil cache gets a MemoryCache
// with the default TTL; a nil logger gets the package default.
func NewService(cache Cache, logger *log.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache(DefaultTTL, nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cache:  cache,
		client: &http.Client{Timeout: DefaultTimeout},
		logger: logger,
	}
}

// SetHTTPClient replaces the HTTP client, primarily for tests that need
// a transport pointed at a fixture server.
func (s *Service) SetHTTPClient(client *http.Client) {
	s.client = client
}

// Discover enumerates packages carrying the given tag across all sources.
// Discovery never fails as a whole: each unreachable source
// contributes an empty result plus a SourceError, and "no templates
// found" versus "source unreachable" stay distinguishable through the
// error list.
func (s *Service) Discover(ctx context.Context, sources []model.SourceRef, tag string) ([]model.PackageSummary, []SourceError) {
	return s.query(ctx, sources, "", tag)
}

// Search enumerates packages matching a free-text query across all
// sources. Local sources match the query against id, title, and
// description; remote sources pass it to the index.
func (s *Service) Search(ctx context.Context, sources []model.SourceRef, query string) ([]model.PackageSummary, []SourceError) {
	return s.query(ctx, sources, query, "")
}

// Refresh invalidates every cached entry for the source — Discover and
// Search results across all tags — so the next call bypasses the cache.
func (s *Service) Refresh(source model.SourceRef) {
	s.cache.InvalidatePrefix(source.String() + "\x00")
}

// query is the shared Discover/Search implementation.
func (s *Service) query(ctx context.Context, sources []model.SourceRef, query string, tag string) ([]model.PackageSummary, []SourceError) {
	var all []model.PackageSummary
	var errs []SourceError

	for _, source := range sources {
		packages, sourceErrs := s.querySource(ctx, source, query, tag)
		all = append(all, packages...)
		errs = append(errs, sourceErrs...)
	}

	sortPackages(all)
	return all, errs
}

// querySource resolves one source through the cache. Cache misses go
// through singleflight so only one fetch per key is in flight; the
// losers of the race receive the winner's result.
func (s *Service) querySource(ctx context.Context, source model.SourceRef, query string, tag string) ([]model.PackageSummary, []SourceError) {
	key := cacheKey(source, query, tag)

	if packages, warnings, ok := s.cache.Get(key); ok {
		return packages, warnings
	}

	type fetchOutcome struct {
		packages []model.PackageSummary
		errs     []SourceError
	}

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		packages, errs := s.fetch(ctx, source, query, tag)
		// Only clean fetches are cached: caching an empty result caused
		// by an unreachable source would hide the outage for a full TTL.
		// Per-package warnings are stored with the entry so they keep
		// being reported for as long as the entry lives.
		if !hasSourceFailure(errs) {
			s.cache.Put(key, packages, errs)
		}
		return fetchOutcome{packages: packages, errs: errs}, nil
	})

	outcome := v.(fetchOutcome)
	return outcome.packages, outcome.errs
}

// fetch performs the uncached source query, including the legacy-tag
// fallback for remote sources.
func (s *Service) fetch(ctx context.Context, source model.SourceRef, query string, tag string) ([]model.PackageSummary, []SourceError) {
	switch source.Kind {
	case model.SourceLocal:
		packages, errs := discoverLocal(source.Location, tag)
		if query != "" {
			packages = filterByQuery(packages, query)
		}
		for _, e := range errs {
			s.logger.Warn("package skipped during discovery",
				"source", e.Source, "package", e.Package, "reason", e.Message)
		}
		return packages, errs

	case model.SourceRemote:
		packages, err := searchRemote(ctx, s.client, source.Location, query, tag)
		if err != nil {
			s.logger.Error("discovery source unreachable",
				"source", source.String(), "error", err)
			return nil, []SourceError{{Source: source.String(), Message: err.Error()}}
		}
		if len(packages) == 0 && tag != "" {
			// Healthy source, zero hits: try the legacy tag convention
			// before concluding the source has nothing.
			fallback := tag + LegacyTagSuffix
			s.logger.Debug("no packages for primary tag, trying fallback",
				"source", source.String(), "tag", fallback)
			packages, err = searchRemote(ctx, s.client, source.Location, query, fallback)
			if err != nil {
				s.logger.Error("discovery source unreachable",
					"source", source.String(), "error", err)
				return nil, []SourceError{{Source: source.String(), Message: err.Error()}}
			}
		}
		return packages, nil

	default:
		return nil, []SourceError{{
			Source:  source.String(),
			Message: fmt.Sprintf("unknown source kind %q", source.Kind),
		}}
	}
}

// cacheKey builds the cache/singleflight key for a source and query/tag
// pair. The NUL separator cannot occur in paths, URLs, or tags, and the
// source forms the leading segment so Refresh can drop all of a source's
// entries by prefix.
func cacheKey(source model.SourceRef, query string, tag string) string {
	return source.String() + "\x00" + query + "\x00" + tag
}

// hasSourceFailure reports whether any error is source-level (not a
// per-package warning).
func hasSourceFailure(errs []SourceError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}

// filterByQuery keeps packages whose id, title, or description contains
// the query, case-insensitive.
func filterByQuery(packages []model.PackageSummary, query string) []model.PackageSummary {
	q := strings.ToLower(query)
	var out []model.PackageSummary
	for _, p := range packages {
		if strings.Contains(strings.ToLower(p.ID), q) ||
			strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

// sortPackages orders results by package ID ascending, then version
// descending, the determinism contract for repeated discovery calls.
func sortPackages(packages []model.PackageSummary) {
	sort.Slice(packages, func(i, j int) bool {
		if packages[i].ID != packages[j].ID {
			return packages[i].ID < packages[j].ID
		}
		return CompareVersions(packages[i].Version, packages[j].Version) > 0
	})
}

// CompareVersions compares two dotted version strings numerically
// segment by segment ("1.10.0" > "1.9.9"). Non-numeric segments fall
// back to string comparison. Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		default:
			if sa != sb {
				if sa < sb {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

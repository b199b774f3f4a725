package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devforge-io/devforge/internal/model"
)

// writePackageArchive creates a .nupkg archive in dir embedding the given
// metadata, returning the archive path.
func writePackageArchive(t *testing.T, dir string, name string, meta PackageMetadata) string {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create(MetadataFileName)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(f).Encode(meta))

	// A content entry so the archive is not metadata-only.
	c, err := w.Create("content/README.md")
	require.NoError(t, err)
	_, err = c.Write([]byte("# package\n"))
	require.NoError(t, err)

	require.NoError(t, w.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// feedServer serves the paginated search protocol over a fixed hit list.
func feedServer(t *testing.T, byTag map[string][]remotePackage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits := byTag[r.URL.Query().Get("tag")]

		skip := 0
		if s := r.URL.Query().Get("skip"); s != "" {
			var err error
			skip, err = strconv.Atoi(s)
			require.NoError(t, err)
		}
		end := skip + pageSize
		if end > len(hits) {
			end = len(hits)
		}
		page := []remotePackage{}
		if skip < len(hits) {
			page = hits[skip:end]
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(searchResponse{
			TotalHits: len(hits),
			Data:      page,
		}))
	}))
}

// --- local discovery ---

func TestDiscover_LocalDirectory(t *testing.T) {
	dir := t.TempDir()
	writePackageArchive(t, dir, "api.1.0.0.nupkg", PackageMetadata{
		ID: "acme.api", Version: "1.0.0", Title: "API Starter",
		Tags: []string{"devcontainer-template"},
	})
	writePackageArchive(t, dir, "untagged.1.0.0.nupkg", PackageMetadata{
		ID: "acme.untagged", Version: "1.0.0",
	})

	svc := NewService(NewMemoryCache(0, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceLocal, Location: dir}}

	packages, errs := svc.Discover(context.Background(), sources, "devcontainer-template")
	assert.Empty(t, errs)
	require.Len(t, packages, 1, "untagged packages are filtered out")
	assert.Equal(t, "acme.api", packages[0].ID)
	assert.Equal(t, "API Starter", packages[0].Title)
}

// A corrupt archive warns and is skipped; its valid neighbors survive.
func TestDiscover_CorruptArchiveDoesNotHideNeighbors(t *testing.T) {
	dir := t.TempDir()
	writePackageArchive(t, dir, "good.1.0.0.nupkg", PackageMetadata{
		ID: "acme.good", Version: "1.0.0", Tags: []string{"t"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.nupkg"), []byte("not a zip"), 0o644))

	svc := NewService(NewMemoryCache(0, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceLocal, Location: dir}}

	packages, errs := svc.Discover(context.Background(), sources, "t")
	require.Len(t, packages, 1)
	assert.Equal(t, "acme.good", packages[0].ID)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Warning, "per-package problems are warnings")
	assert.Equal(t, "bad.nupkg", errs[0].Package)
}

func TestDiscover_MissingDirectoryIsSourceError(t *testing.T) {
	svc := NewService(NewMemoryCache(0, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceLocal, Location: "/no/such/dir"}}

	packages, errs := svc.Discover(context.Background(), sources, "t")
	assert.Empty(t, packages)
	require.Len(t, errs, 1)
	assert.False(t, errs[0].Warning, "unreadable source is a source-level failure")
}

// --- remote discovery ---

func TestDiscover_RemoteFeed(t *testing.T) {
	server := feedServer(t, map[string][]remotePackage{
		"devcontainer-template": {
			{ID: "acme.api", Version: "2.0.0", Tags: []string{"devcontainer-template"}},
			{ID: "acme.api", Version: "1.4.0", Tags: []string{"devcontainer-template"}},
			{ID: "acme.cli", Version: "1.0.0", Tags: []string{"devcontainer-template"}},
		},
	})
	defer server.Close()

	svc := NewService(NewMemoryCache(0, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceRemote, Location: server.URL}}

	packages, errs := svc.Discover(context.Background(), sources, "devcontainer-template")
	assert.Empty(t, errs)
	require.Len(t, packages, 3)

	// ID ascending, version descending within an ID.
	assert.Equal(t, "acme.api", packages[0].ID)
	assert.Equal(t, "2.0.0", packages[0].Version)
	assert.Equal(t, "acme.api", packages[1].ID)
	assert.Equal(t, "1.4.0", packages[1].Version)
	assert.Equal(t, "acme.cli", packages[2].ID)
}

// A healthy feed with zero hits for the primary tag is retried with the
// legacy tag before concluding it has nothing.
func TestDiscover_LegacyTagFallback(t *testing.T) {
	server := feedServer(t, map[string][]remotePackage{
		"devcontainer-template" + LegacyTagSuffix: {
			{ID: "acme.old", Version: "0.9.0"},
		},
	})
	defer server.Close()

	svc := NewService(NewMemoryCache(0, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceRemote, Location: server.URL}}

	packages, errs := svc.Discover(context.Background(), sources, "devcontainer-template")
	assert.Empty(t, errs)
	require.Len(t, packages, 1)
	assert.Equal(t, "acme.old", packages[0].ID)
}

// TestDiscover_UnreachableSourceDoesNotHideOthers covers discovery with
// one reachable and one unreachable source: the reachable source's
// results come back, and the outage is reported separately so "nothing
// found" and "source down" stay distinguishable.
func TestDiscover_UnreachableSourceDoesNotHideOthers(t *testing.T) {
	dir := t.TempDir()
	writePackageArchive(t, dir, "ok.1.0.0.nupkg", PackageMetadata{
		ID: "acme.ok", Version: "1.0.0", Tags: []string{"t"},
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(NewMemoryCache(0, nil), nil)
	sources := []model.SourceRef{
		{Kind: model.SourceLocal, Location: dir},
		{Kind: model.SourceRemote, Location: server.URL},
	}

	packages, errs := svc.Discover(context.Background(), sources, "t")
	require.Len(t, packages, 1)
	assert.Equal(t, "acme.ok", packages[0].ID)
	require.Len(t, errs, 1)
	assert.False(t, errs[0].Warning)
	assert.Contains(t, errs[0].Message, "502")
}

// --- caching ---

func TestDiscover_SecondCallServedFromCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(searchResponse{
			TotalHits: 1,
			Data:      []remotePackage{{ID: "acme.api", Version: "1.0.0"}},
		})
	}))
	defer server.Close()

	svc := NewService(NewMemoryCache(time.Hour, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceRemote, Location: server.URL}}

	_, errs := svc.Discover(context.Background(), sources, "t")
	require.Empty(t, errs)
	_, errs = svc.Discover(context.Background(), sources, "t")
	require.Empty(t, errs)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDiscover_FailedFetchNotCached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(searchResponse{
			TotalHits: 1,
			Data:      []remotePackage{{ID: "acme.api", Version: "1.0.0"}},
		})
	}))
	defer server.Close()

	svc := NewService(NewMemoryCache(time.Hour, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceRemote, Location: server.URL}}

	packages, errs := svc.Discover(context.Background(), sources, "t")
	assert.Empty(t, packages)
	require.Len(t, errs, 1)

	// The failure was not cached, so the retry reaches the server.
	packages, errs = svc.Discover(context.Background(), sources, "t")
	assert.Empty(t, errs)
	require.Len(t, packages, 1)
}

func TestRefresh_InvalidatesCachedEntry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(searchResponse{TotalHits: 0})
	}))
	defer server.Close()

	svc := NewService(NewMemoryCache(time.Hour, nil), nil)
	source := model.SourceRef{Kind: model.SourceRemote, Location: server.URL}
	sources := []model.SourceRef{source}

	_, _ = svc.Discover(context.Background(), sources, "t")
	svc.Refresh(source)
	_, _ = svc.Discover(context.Background(), sources, "t")

	// Each discover issues the primary-tag and legacy-tag requests.
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestRefresh_InvalidatesSearchEntries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(searchResponse{
			TotalHits: 1,
			Data:      []remotePackage{{ID: "acme.api", Version: "1.0.0"}},
		})
	}))
	defer server.Close()

	svc := NewService(NewMemoryCache(time.Hour, nil), nil)
	source := model.SourceRef{Kind: model.SourceRemote, Location: server.URL}
	sources := []model.SourceRef{source}

	_, _ = svc.Search(context.Background(), sources, "api")
	_, _ = svc.Search(context.Background(), sources, "api")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "second search served from cache")

	// Refresh drops the source's search entries too, not just Discover's.
	svc.Refresh(source)
	_, _ = svc.Search(context.Background(), sources, "api")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// A corrupt archive's warning must keep being reported while the cache
// entry that recorded it is alive.
func TestDiscover_WarningsSurviveCacheHit(t *testing.T) {
	dir := t.TempDir()
	writePackageArchive(t, dir, "good.1.0.0.nupkg", PackageMetadata{
		ID: "acme.good", Version: "1.0.0", Tags: []string{"t"},
	})
	badPath := filepath.Join(dir, "bad.nupkg")
	require.NoError(t, os.WriteFile(badPath, []byte("not a zip"), 0o644))

	svc := NewService(NewMemoryCache(time.Hour, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceLocal, Location: dir}}

	_, errs := svc.Discover(context.Background(), sources, "t")
	require.Len(t, errs, 1)

	// Removing the bad archive proves the second call never rescans the
	// directory: the warning it reports came from the cache entry.
	require.NoError(t, os.Remove(badPath))

	packages, errs := svc.Discover(context.Background(), sources, "t")
	require.Len(t, packages, 1)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Warning)
	assert.Equal(t, "bad.nupkg", errs[0].Package)
}

func TestDiscover_ConcurrentCallersShareOneFetch(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_ = json.NewEncoder(w).Encode(searchResponse{
			TotalHits: 1,
			Data:      []remotePackage{{ID: "acme.api", Version: "1.0.0"}},
		})
	}))
	defer server.Close()

	svc := NewService(NewMemoryCache(time.Hour, nil), nil)
	sources := []model.SourceRef{{Kind: model.SourceRemote, Location: server.URL}}

	const callers = 8
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	results := make([][]model.PackageSummary, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], _ = svc.Discover(context.Background(), sources, "t")
		}(i)
	}

	// Hold the response until every caller has had a chance to join the
	// in-flight fetch, then let the single fetch complete.
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "one fetch serves all concurrent callers")
	for i := range results {
		require.Len(t, results[i], 1)
	}
}

// --- cache expiry ---

func TestMemoryCache_TTLExpiry(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(time.Hour, func() time.Time { return clock })

	cache.Put("k", []model.PackageSummary{{ID: "a", Version: "1"}}, nil)

	_, _, ok := cache.Get("k")
	assert.True(t, ok)

	clock = clock.Add(59 * time.Minute)
	_, _, ok = cache.Get("k")
	assert.True(t, ok, "entry still fresh")

	clock = clock.Add(time.Minute)
	_, _, ok = cache.Get("k")
	assert.False(t, ok, "entry expired at TTL")
}

func TestMemoryCache_Invalidate(t *testing.T) {
	cache := NewMemoryCache(time.Hour, nil)
	cache.Put("k", nil, nil)
	cache.Invalidate("k")
	_, _, ok := cache.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_InvalidatePrefix(t *testing.T) {
	cache := NewMemoryCache(time.Hour, nil)
	cache.Put("src-a\x00\x00t1", nil, nil)
	cache.Put("src-a\x00query\x00", nil, nil)
	cache.Put("src-b\x00\x00t1", nil, nil)

	cache.InvalidatePrefix("src-a\x00")

	_, _, ok := cache.Get("src-a\x00\x00t1")
	assert.False(t, ok)
	_, _, ok = cache.Get("src-a\x00query\x00")
	assert.False(t, ok)
	_, _, ok = cache.Get("src-b\x00\x00t1")
	assert.True(t, ok, "other sources keep their entries")
}

// --- version comparison ---

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 1, CompareVersions("1.10.0", "1.9.9"), "numeric, not lexicographic")
	assert.Equal(t, -1, CompareVersions("1.4.0", "2.0.0"))
	assert.Equal(t, 0, CompareVersions("1.4.0", "1.4.0"))
	assert.Equal(t, 1, CompareVersions("1.4.1", "1.4"), "longer version with extra segment sorts higher")
	assert.Equal(t, -1, CompareVersions("1.0.0-beta", "1.0.0-rc"), "non-numeric segments compare as strings")
}

// extractor.go drives a full package extraction: resolve the package
// reference to bytes, take the destination init marker, unpack entries
// with token substitution, parse the manifest, and either release the
// marker on success or roll everything back on failure.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"github.com/devforge-io/devforge/internal/model"
)

// downloadTimeout bounds remote package downloads.
const downloadTimeout = 30 * time.Second

// PackageRef identifies the package archive to extract: a local file
// path or a remote URL. Exactly one of the fields is set.
type PackageRef struct {
	// Path is the local archive path.
	Path string

	// URL is the remote archive URL.
	URL string
}

// String returns the set reference for display.
func (r PackageRef) String() string {
	if r.Path != "" {
		return r.Path
	}
	return r.URL
}

// Options adjusts extraction behavior.
type Options struct {
	// ProjectName replaces the __PROJECT_NAME__ token.
	ProjectName string

	// ProjectDescription replaces the __PROJECT_DESCRIPTION__ token.
	ProjectDescription string

	// Force permits overwriting an existing destination and reclaiming a
	// stale init marker.
	Force bool
}

// Result reports the outcome of an Extract call.
type Result struct {
	// Success is true when all entries were written and the manifest parsed.
	Success bool `json:"success"`

	// ExtractedFiles lists the written file paths relative to the
	// destination, in archive order.
	ExtractedFiles []string `json:"extractedFiles,omitempty"`

	// Manifest is the parsed Template entity, nil on failure.
	Manifest *model.Template `json:"manifest,omitempty"`

	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Extractor unpacks template packages. Construct with NewExtractor.
type Extractor struct {
	client *http.Client
	logger *log.Logger
}

// NewExtractor creates an Extractor. A nil logger gets the package default.
func NewExtractor(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{
		client: &http.Client{Timeout: downloadTimeout},
		logger: logger,
	}
}

// SetHTTPClient replaces the HTTP client used for remote downloads,
// primarily for tests.
func (e *Extractor) SetHTTPClient(client *http.Client) {
	e.client = client
}

// Extract unpacks the referenced package into dest.
//
// Failure modes — package not found, destination not writable, malformed
// manifest — all return Success=false with a specific message, and roll
// back any files already written so the destination cannot pass later
// validation. The init marker stays owned for the whole operation;
// cancellation aborts at the next file boundary and likewise rolls back.
func (e *Extractor) Extract(ctx context.Context, ref PackageRef, dest string, opts Options) Result {
	guard, err := AcquireGuard(dest, opts.Force)
	if err != nil {
		return Result{ErrorMessage: err.Error()}
	}
	defer guard.Release()

	result := e.Unpack(ctx, ref, dest, opts)
	if !result.Success {
		// Roll back everything this call wrote so a retry starts from a
		// clean destination.
		e.Rollback(dest, result.ExtractedFiles)
		result.ExtractedFiles = nil
	}
	return result
}

// Unpack performs the extraction without touching the init marker. The
// caller must hold the destination's Guard; orchestration that continues
// writing into the destination afterwards (the init command's file
// generation) uses this to keep one Guard across the whole operation.
func (e *Extractor) Unpack(ctx context.Context, ref PackageRef, dest string, opts Options) Result {
	var result Result

	data, err := e.resolveBytes(ctx, ref)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("unreadable package archive %s: %v", ref, err)
		return result
	}

	var manifestData []byte

	for _, f := range reader.File {
		// Cancellation is checked before each file write.
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.ErrorMessage = fmt.Sprintf("extraction cancelled: %v", ctxErr)
			return result
		}

		name := filepath.ToSlash(f.Name)
		segments := strings.Split(name, "/")
		if isIgnoredPath(segments) {
			continue
		}

		// The manifest and the discovery metadata file describe the
		// package; they are not part of the project content.
		base := segments[len(segments)-1]
		if base == ManifestFileName {
			manifestData, err = readZipEntry(f)
			if err != nil {
				result.ErrorMessage = fmt.Sprintf("cannot read template manifest: %v", err)
				return result
			}
			continue
		}
		if base == "devforge-package.json" {
			continue
		}

		// Directory names containing placeholder tokens are substituted
		// the same way file content is.
		relPath := substituteTokens(name, opts.ProjectName, opts.ProjectDescription)
		target, pathErr := secureJoin(dest, relPath)
		if pathErr != nil {
			result.ErrorMessage = pathErr.Error()
			return result
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				result.ErrorMessage = fmt.Sprintf("cannot create directory %s: %v", target, err)
				return result
			}
			continue
		}

		content, err := readZipEntry(f)
		if err != nil {
			result.ErrorMessage = fmt.Sprintf("cannot read archive entry %s: %v", name, err)
			return result
		}

		if isProcessable(filepath.Ext(name)) {
			content = []byte(substituteTokens(string(content), opts.ProjectName, opts.ProjectDescription))
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			result.ErrorMessage = fmt.Sprintf("cannot create directory for %s: %v", target, err)
			return result
		}
		if err := os.WriteFile(target, content, f.Mode().Perm()|0o600); err != nil {
			result.ErrorMessage = fmt.Sprintf("cannot write %s: %v", target, err)
			return result
		}

		rel, _ := filepath.Rel(dest, target)
		result.ExtractedFiles = append(result.ExtractedFiles, rel)
		e.logger.Debug("extracted", "file", rel)
	}

	if manifestData == nil {
		result.ErrorMessage = fmt.Sprintf("package %s has no %s", ref, ManifestFileName)
		return result
	}

	manifest, err := ParseManifest(manifestData)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	result.Manifest = &manifest
	result.Success = true
	return result
}

// resolveBytes fetches the archive content from disk or over HTTP.
func (e *Extractor) resolveBytes(ctx context.Context, ref PackageRef) ([]byte, error) {
	if ref.Path != "" {
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("package not found: %s", ref.Path)
			}
			return nil, fmt.Errorf("cannot read package %s: %w", ref.Path, err)
		}
		return data, nil
	}

	if ref.URL == "" {
		return nil, fmt.Errorf("package reference is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid package URL %q: %w", ref.URL, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("package download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("package not found: %s", ref.URL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("package download returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("package download interrupted: %w", err)
	}
	return data, nil
}

// Rollback removes the files a failed extraction wrote, then any empty
// directories they left behind. Best effort: the marker removal that
// follows is what unblocks retries.
func (e *Extractor) Rollback(dest string, files []string) {
	for _, rel := range files {
		_ = os.Remove(filepath.Join(dest, rel))
	}
	// Remove now-empty directories deepest-first.
	for i := len(files) - 1; i >= 0; i-- {
		dir := filepath.Dir(filepath.Join(dest, files[i]))
		for dir != dest && dir != "." {
			if err := os.Remove(dir); err != nil {
				break // not empty or already gone
			}
			dir = filepath.Dir(dir)
		}
	}
}

// readZipEntry reads one archive entry fully into memory.
func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// secureJoin joins an archive-relative path onto dest, rejecting entries
// that would escape the destination (zip-slip).
func secureJoin(dest string, rel string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(rel))
	cleanDest := filepath.Clean(dest) + string(os.PathSeparator)
	if !strings.HasPrefix(target, cleanDest) {
		return "", fmt.Errorf("archive entry %q escapes the destination", rel)
	}
	return target, nil
}

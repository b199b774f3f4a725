// local.go implements discovery against a local directory of package
// archives. The scan is non-recursive, synchronous, and network-free:
// each archive's embedded metadata file is read in place without
// unpacking the archive's content entries.
package discovery

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/tidwall/jsonc"

	"github.com/devforge-io/devforge/internal/model"
)

// MetadataFileName is the metadata file every package archive must embed
// at its root.
const MetadataFileName = "devforge-package.json"

// archiveExtensions are the file extensions scanned as package archives.
var archiveExtensions = map[string]bool{
	".zip":   true,
	".nupkg": true,
}

// PackageMetadata is the JSON shape of the embedded metadata file.
type PackageMetadata struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// discoverLocal scans dir (non-recursive) for package archives whose tag
// set contains tag. Unreadable archives and missing or malformed metadata
// become per-package warnings, never aborts: a broken archive must not
// hide its valid neighbors.
func discoverLocal(dir string, tag string) ([]model.PackageSummary, []SourceError) {
	source := model.SourceRef{Kind: model.SourceLocal, Location: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []SourceError{{
			Source:  source.String(),
			Message: fmt.Sprintf("cannot read source directory: %v", err),
		}}
	}

	var packages []model.PackageSummary
	var errs []SourceError

	for _, entry := range entries {
		if entry.IsDir() || !archiveExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		meta, err := ReadArchiveMetadata(path)
		if err != nil {
			errs = append(errs, SourceError{
				Source:  source.String(),
				Package: entry.Name(),
				Warning: true,
				Message: err.Error(),
			})
			continue
		}

		summary := summaryFromMetadata(meta, source.String())
		if tag == "" || summary.HasTag(tag) {
			packages = append(packages, summary)
		}
	}

	return packages, errs
}

// ReadArchiveMetadata opens a package archive and parses its embedded
// metadata file without extracting any content entries. JSONC is accepted.
func ReadArchiveMetadata(path string) (PackageMetadata, error) {
	var meta PackageMetadata

	reader, err := zip.OpenReader(path)
	if err != nil {
		return meta, fmt.Errorf("unreadable archive: %w", err)
	}
	defer func() { _ = reader.Close() }()

	for _, f := range reader.File {
		if f.Name != MetadataFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return meta, fmt.Errorf("cannot open %s: %w", MetadataFileName, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return meta, fmt.Errorf("cannot read %s: %w", MetadataFileName, err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &meta); err != nil {
			return meta, fmt.Errorf("malformed %s: %w", MetadataFileName, err)
		}
		if meta.ID == "" || meta.Version == "" {
			return meta, fmt.Errorf("%s is missing id or version", MetadataFileName)
		}
		return meta, nil
	}

	return meta, fmt.Errorf("archive has no %s", MetadataFileName)
}

// summaryFromMetadata converts parsed archive metadata into the public
// summary shape.
func summaryFromMetadata(meta PackageMetadata, source string) model.PackageSummary {
	title := meta.Title
	if title == "" {
		title = meta.ID
	}
	return model.PackageSummary{
		ID:          meta.ID,
		Version:     meta.Version,
		Title:       title,
		Description: meta.Description,
		Tags:        meta.Tags,
		Source:      source,
	}
}

// Package series organizes parsed DICOM files into series ordered by
// instance number.
package series

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"mriviewer/internal/models"
	"mriviewer/pkg/dicomio"
)

var (
	// ErrEmptyBatch is returned when no file of a batch could be parsed.
	ErrEmptyBatch = errors.New("no valid DICOM files found")

	// ErrNoDICOMFiles is returned when a folder holds no candidate files.
	ErrNoDICOMFiles = errors.New("no DICOM files found in the selected folder")
)

// UnknownSeriesID groups files that carry no series identifier.
const UnknownSeriesID = "Unknown"

// Index maps series identifiers to series, remembering insertion order.
type Index struct {
	order  []string
	series map[string]*models.Series

	// first is the first descriptor in ingestion order
	first *models.ImageDescriptor
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{series: make(map[string]*models.Series)}
}

// Options controls ingestion.
type Options struct {
	// Workers bounds the number of files parsed at once (default: NumCPU)
	Workers int

	Logger *slog.Logger
}

// Ingest parses files with dec and groups the survivors into series.
//
// Files are parsed concurrently; grouping and sorting only start once
// every parse has finished, and follow the order of files, not the order
// in which parses complete. A file that fails to parse is logged and
// skipped. If nothing survives, ErrEmptyBatch is returned.
func Ingest(ctx context.Context, dec dicomio.Decoder, files []string, opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type parseResult struct {
		idx  int
		desc *models.ImageDescriptor
	}
	resultChan := make(chan parseResult)
	sem := make(chan struct{}, workers)

	for i, path := range files {
		go func(idx int, path string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			md, err := dec.Decode(ctx, path)
			if err != nil {
				logger.Warn("skipping unreadable file", "path", path, "error", err)
				resultChan <- parseResult{idx: idx}
				return
			}
			resultChan <- parseResult{idx: idx, desc: describe(path, md)}
		}(i, path)
	}

	parsed := make([]*models.ImageDescriptor, len(files))
	for range files {
		res := <-resultChan
		parsed[res.idx] = res.desc
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var valid []models.ImageDescriptor
	for _, d := range parsed {
		if d != nil {
			valid = append(valid, *d)
		}
	}
	if len(valid) == 0 {
		return nil, ErrEmptyBatch
	}

	idx := Build(valid)
	logger.Info("ingested series", "files", len(files), "valid", len(valid), "series", idx.Len())
	return idx, nil
}

func describe(path string, md dicomio.Metadata) *models.ImageDescriptor {
	return &models.ImageDescriptor{
		ID:             path,
		Metadata:       md,
		SeriesID:       dicomio.StringOr(md, dicomio.TagSeriesInstanceUID, UnknownSeriesID),
		InstanceNumber: dicomio.IntOr(md, dicomio.TagInstanceNumber, 0),
		SourcePath:     path,
	}
}

// Build groups descriptors by series in first-encounter order and sorts
// each series by instance number, keeping ingestion order for ties.
func Build(descs []models.ImageDescriptor) *Index {
	idx := NewIndex()
	if len(descs) > 0 {
		first := descs[0]
		idx.first = &first
	}
	for _, d := range descs {
		s, ok := idx.series[d.SeriesID]
		if !ok {
			s = &models.Series{
				ID:          d.SeriesID,
				Description: dicomio.StringOr(d.Metadata, dicomio.TagSeriesDescription, ""),
			}
			idx.series[d.SeriesID] = s
			idx.order = append(idx.order, d.SeriesID)
		}
		s.Images = append(s.Images, d)
	}

	for _, s := range idx.series {
		sort.SliceStable(s.Images, func(i, j int) bool {
			return s.Images[i].InstanceNumber < s.Images[j].InstanceNumber
		})
	}
	return idx
}

// FirstSeriesID returns the series inserted first.
func (x *Index) FirstSeriesID() (string, bool) {
	if x == nil || len(x.order) == 0 {
		return "", false
	}
	return x.order[0], true
}

// First returns the first image that was ingested, before any sorting.
func (x *Index) First() (models.ImageDescriptor, bool) {
	if x == nil || x.first == nil {
		return models.ImageDescriptor{}, false
	}
	return *x.first, true
}

// Series looks up a series by id.
func (x *Index) Series(id string) (*models.Series, bool) {
	if x == nil {
		return nil, false
	}
	s, ok := x.series[id]
	return s, ok
}

// IDs returns the series ids in insertion order.
func (x *Index) IDs() []string {
	if x == nil {
		return nil
	}
	return append([]string(nil), x.order...)
}

// Len returns the number of series.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.order)
}

// Option is one entry of the series selector.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Selector lists selector entries in insertion order, labelled
// "Series N (M slices)".
func (x *Index) Selector() []Option {
	out := make([]Option, 0, x.Len())
	for i, id := range x.IDs() {
		out = append(out, Option{
			ID:    id,
			Label: fmt.Sprintf("Series %d (%d slices)", i+1, x.series[id].Len()),
		})
	}
	return out
}

// CollectFolder walks dir and returns the paths of all files with
// extension ext (".dcm" when empty, case-insensitive), sorted lexically.
func CollectFolder(dir, ext string) ([]string, error) {
	if ext == "" {
		ext = ".dcm"
	}
	ext = strings.ToLower(ext)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(d.Name())) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading folder %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, ErrNoDICOMFiles
	}
	sort.Strings(files)
	return files, nil
}

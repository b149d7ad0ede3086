package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"mriviewer/pkg/visualization"
)

const msgNoImage = "No image to export"

// ErrExportPath is returned when an export name would leave the target
// directory
var ErrExportPath = errors.New("export path escapes the export directory")

// Render composites the current view with its measurement overlay
func (a *App) Render(ctx context.Context) (*image.RGBA, error) {
	var (
		img *image.RGBA
		err error
	)
	if derr := a.Do(ctx, func() { img, err = a.canvas.Render() }); derr != nil {
		return nil, derr
	}
	return img, err
}

// Export renders the current view and names it after the series and slice
func (a *App) Export(ctx context.Context) (string, *image.RGBA, error) {
	var (
		name string
		img  *image.RGBA
		err  error
	)
	derr := a.Do(ctx, func() {
		img, err = a.canvas.Render()
		if err != nil {
			if errors.Is(err, visualization.ErrNoImage) {
				a.Notify(msgNoImage)
			} else {
				a.Notify("Failed to export image: " + err.Error())
			}
			return
		}
		id, ok := a.state.CurrentSeries()
		name = visualization.ExportFilename(id, ok, a.state.CurrentSlice(), a.now())
	})
	if derr != nil {
		return "", nil, derr
	}
	if err != nil {
		a.logger.Error("export failed", "error", err)
		return "", nil, err
	}
	return name, img, nil
}

// ExportTo writes the current view as a PNG into dir and returns its path
func (a *App) ExportTo(ctx context.Context, dir string) (string, error) {
	name, img, err := a.Export(ctx)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if filepath.Dir(path) != filepath.Clean(dir) {
		a.logger.Error("export rejected", "dir", dir, "name", name)
		return "", fmt.Errorf("%s: %w", name, ErrExportPath)
	}
	if err := visualization.SavePNG(img, path); err != nil {
		a.logger.Error("export failed", "path", path, "error", err)
		return "", err
	}
	a.logger.Info("exported view", "path", path)
	return path, nil
}

package viewer

import (
	"context"
	"errors"
	"fmt"

	"mriviewer/pkg/dicomio"
	"mriviewer/pkg/series"
	"mriviewer/pkg/transform"
	"mriviewer/pkg/visualization"
)

// Alert texts shown to the user
const (
	msgNoDICOMFiles = "No DICOM files found in the selected folder."
	msgFolderError  = "Error loading DICOM files. Please check the log for details."
	msgFileError    = "Error loading DICOM file. Please make sure the file is a valid DICOM (.dcm) file."
)

// OpenFolder loads every DICOM file below dir, replacing the current study,
// and shows the first slice of the first series.
func (a *App) OpenFolder(ctx context.Context, dir string) error {
	var gen uint64
	if err := a.Do(ctx, func() { gen = a.startLoading() }); err != nil {
		return err
	}

	files, err := series.CollectFolder(dir, a.extension)
	if err != nil {
		a.logger.Error("error loading folder", "dir", dir, "error", err)
		msg := msgFolderError
		if errors.Is(err, series.ErrNoDICOMFiles) {
			msg = msgNoDICOMFiles
		}
		a.fail(ctx, gen, msg)
		return err
	}

	idx, err := series.Ingest(ctx, a.decoder, files, series.Options{
		Workers: a.workers,
		Logger:  a.logger.With("component", "series"),
	})
	if err != nil {
		a.logger.Error("error loading folder", "dir", dir, "error", err)
		a.fail(ctx, gen, msgFolderError)
		return fmt.Errorf("loading %s: %w", dir, err)
	}

	return a.install(ctx, gen, dir, func() { a.installIndex(idx) })
}

// OpenFile shows a single DICOM file outside of any series
func (a *App) OpenFile(ctx context.Context, path string) error {
	var gen uint64
	if err := a.Do(ctx, func() { gen = a.startLoading() }); err != nil {
		return err
	}

	md, frame, err := a.decoder.Frame(ctx, path)
	var img *visualization.Image
	if err == nil {
		img, err = visualization.NewImage(path, frame, md)
	}
	if err != nil {
		a.logger.Error("error loading DICOM file", "path", path, "error", err)
		a.fail(ctx, gen, msgFileError)
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return a.install(ctx, gen, path, func() { a.installSingle(md, img) })
}

// install runs fn on the loop unless a newer open started meanwhile
func (a *App) install(ctx context.Context, gen uint64, source string, fn func()) error {
	stale := false
	err := a.Do(ctx, func() {
		if gen != a.openGen {
			stale = true
			return
		}
		fn()
	})
	if err != nil {
		return err
	}
	if stale {
		a.logger.Info("discarding superseded open", "source", source)
		return ErrSuperseded
	}
	return nil
}

// startLoading clears the session, raises the loading indicator and
// returns the generation of the new open
func (a *App) startLoading() uint64 {
	a.resetSession()
	a.loading = true
	a.openGen++
	return a.openGen
}

// fail drops the loading indicator and raises msg, unless a newer open
// owns the session by now
func (a *App) fail(ctx context.Context, gen uint64, msg string) {
	err := a.Do(ctx, func() {
		if gen != a.openGen {
			return
		}
		a.loading = false
		a.Notify(msg)
	})
	if err != nil {
		a.logger.Warn("could not report failure", "error", err)
	}
}

// resetSession forgets the previous study
func (a *App) resetSession() {
	a.index = nil
	a.nav.SetSource(nil)
	a.canvas.Clear()
	a.state.ClearSeries()
	a.state.ClearMeasurements()
	a.state.SetMeasurementMode(false)
	a.state.SetPixelSpacing(transform.DefaultPixelSpacing())
	a.view.Reset()
	a.panel = panel{}
}

func (a *App) installIndex(idx *series.Index) {
	a.loading = false
	a.index = idx
	a.nav.SetSource(idx)

	if first, ok := idx.First(); ok {
		a.panel.study = dicomio.StudyInfo(first.Metadata)
	}
	a.panel.selector = idx.Selector()

	id, ok := idx.FirstSeriesID()
	if !ok {
		return
	}
	if err := a.nav.SelectSeries(id); err != nil {
		a.logger.Error("error selecting series", "series", id, "error", err)
	}
}

func (a *App) installSingle(md dicomio.Metadata, img *visualization.Image) {
	a.loading = false
	a.canvas.Display(img)
	a.state.SetPixelSpacing(dicomio.PixelSpacing(md))
	a.panel.image = dicomio.ImageInfo(md)
	a.measure.Redraw()
	a.state.EnableInteraction()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/gg"

	"mriviewer/pkg/config"
	"mriviewer/pkg/server"
	"mriviewer/pkg/viewcontrol"
	"mriviewer/pkg/viewer"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	initConfig := flag.String("init-config", "", "Write a default configuration file to this path and exit")
	addr := flag.String("addr", "", "Listen address (overrides the configuration)")
	folder := flag.String("folder", "", "Folder of DICOM files to open at startup")
	file := flag.String("file", "", "Single DICOM file to open at startup")
	exportDir := flag.String("export", "", "Export the first slice as PNG into this directory and exit")
	flag.Parse()

	if *initConfig != "" {
		if err := config.CreateDefaultConfigFile(*initConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *initConfig)
		return
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *folder != "" && *file != "" {
		log.Fatalf("Only one of -folder and -file may be given")
	}
	if *exportDir != "" && *folder == "" && *file == "" {
		log.Fatalf("-export needs -folder or -file")
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "render"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := viewer.New(viewer.Options{
		CanvasWidth:  cfg.Canvas.Width,
		CanvasHeight: cfg.Canvas.Height,
		Background:   cfg.Canvas.Background,
		Workers:      cfg.Processing.NumCores,
		Extension:    cfg.Processing.Extension,
		View: viewcontrol.Settings{
			ZoomStep:  cfg.View.ZoomStep,
			WheelStep: cfg.View.WheelStep,
			MinScale:  cfg.View.MinScale,
			MaxScale:  cfg.View.MaxScale,
		},
		Logger: logger,
	})

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- app.Run(ctx)
	}()

	switch {
	case *folder != "":
		err = app.OpenFolder(ctx, *folder)
	case *file != "":
		err = app.OpenFile(ctx, *file)
	}
	if err != nil {
		log.Fatalf("Failed to open study: %v", err)
	}

	if *exportDir != "" {
		if err := os.MkdirAll(*exportDir, 0755); err != nil {
			log.Fatalf("Failed to create export directory: %v", err)
		}
		if err := waitForSlice(ctx, app); err != nil {
			log.Fatalf("Failed to load slice: %v", err)
		}
		path, err := app.ExportTo(ctx, *exportDir)
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("Exported view to %s\n", path)
		return
	}

	srv := server.New(app, server.Options{
		ExportDir: cfg.Server.ExportDir,
		Logger:    logger.With("component", "server"),
	})
	fmt.Printf("MRI viewer running at http://%s\n", cfg.Server.Addr)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	stop()
	<-loopDone
}

// waitForSlice blocks until the first slice of an opened folder is on screen
func waitForSlice(ctx context.Context, app *viewer.App) error {
	for {
		st, err := app.Status(ctx)
		if err != nil {
			return err
		}
		if !st.Loading {
			if !st.HasImage {
				return fmt.Errorf("no image displayed")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Command docforge converts PDF documents from the command line.
//
// Usage:
//
//	docforge convert in.pdf -o pages.zip            # rasterize pages into a zip
//	docforge convert in.pdf -format jpg -scale 2.0  # high-res JPEG pages
//	docforge extract in.pdf -o content.zip          # text + embedded images
//	docforge compose a.png b.jpg -o out.pdf         # images back into a PDF
//	docforge todocx in.pdf -o out.docx              # reconstruct a Word document
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hazyhaar/docforge/docpipe"
	"github.com/hazyhaar/docforge/guard"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "path to limits config (yaml)")
	outPath := fs.String("o", "", "output path (default derived from input)")
	format := fs.String("format", "png", "page image format: png or jpg")
	scale := fs.Float64("scale", 1.0, "page raster scale factor")
	quality := fs.Float64("quality", 0.9, "jpeg quality in [0,1]")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")

	// Subcommand positional args come before flags.
	var inputs []string
	rest := args
	for len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		inputs = append(inputs, rest[0])
		rest = rest[1:]
	}
	if err := fs.Parse(rest); err != nil {
		os.Exit(2)
	}

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cmd, inputs, *configPath, *outPath, *format, *scale, *quality); err != nil {
		logger.Error("docforge: fatal", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cmd string, inputs []string, configPath, outPath, format string, scale, quality float64) error {
	var guardCfg guard.Config
	if configPath != "" {
		cfg, err := guard.LoadConfig(configPath)
		if err != nil {
			return err
		}
		guardCfg = cfg
	}
	pipe := docpipe.New(docpipe.Config{Guard: guardCfg, Logger: logger})

	switch cmd {
	case "convert":
		up, err := readUpload(inputs)
		if err != nil {
			return err
		}
		opts := docpipe.ConvertOptions{
			Format:      docpipe.ImageFormat(format),
			Scale:       scale,
			JPEGQuality: quality,
		}
		return writeTo(defaultOut(outPath, inputs[0], "zip"), func(out *os.File) error {
			return pipe.Convert(ctx, up, opts, out)
		})

	case "extract":
		up, err := readUpload(inputs)
		if err != nil {
			return err
		}
		return writeTo(defaultOut(outPath, inputs[0], "zip"), func(out *os.File) error {
			return pipe.Extract(ctx, up, out)
		})

	case "compose":
		if len(inputs) == 0 {
			return fmt.Errorf("compose: no input images")
		}
		images, err := readImages(inputs)
		if err != nil {
			return err
		}
		data, err := pipe.Compose(ctx, "cli", images)
		if err != nil {
			return err
		}
		return os.WriteFile(defaultOut(outPath, inputs[0], "pdf"), data, 0o644)

	case "todocx":
		up, err := readUpload(inputs)
		if err != nil {
			return err
		}
		data, err := pipe.ToWordDocument(ctx, up, docpipe.DefaultReconstructOptions())
		if err != nil {
			return err
		}
		return os.WriteFile(defaultOut(outPath, inputs[0], "docx"), data, 0o644)

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func readUpload(inputs []string) (docpipe.Upload, error) {
	if len(inputs) != 1 {
		return docpipe.Upload{}, fmt.Errorf("expected exactly one input PDF, got %d", len(inputs))
	}
	data, err := os.ReadFile(inputs[0])
	if err != nil {
		return docpipe.Upload{}, fmt.Errorf("read %s: %w", inputs[0], err)
	}
	return docpipe.Upload{
		ClientID: "cli",
		Filename: filepath.Base(inputs[0]),
		Data:     data,
	}, nil
}

func readImages(paths []string) ([]docpipe.InputImage, error) {
	images := make([]docpipe.InputImage, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var format docpipe.ImageFormat
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png":
			format = docpipe.Png
		case ".jpg", ".jpeg":
			format = docpipe.Jpeg
		default:
			return nil, fmt.Errorf("%s: unsupported image extension", path)
		}
		images = append(images, docpipe.InputImage{Data: data, Format: format})
	}
	return images, nil
}

// defaultOut derives the output path from the input when -o is not given.
func defaultOut(outPath, input, ext string) string {
	if outPath != "" {
		return outPath
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "." + ext
}

// writeTo streams a conversion into path, removing the file on failure so a
// truncated archive never survives.
func writeTo(path string, fn func(*os.File) error) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: docforge <command> [inputs] [flags]

commands:
  convert  rasterize PDF pages into a zip of page images
  extract  recover text and embedded images into a zip
  compose  build a PDF from png/jpg images, one page each
  todocx   reconstruct an editable Word document

flags:
`)
	fmt.Fprintf(os.Stderr, "  -config path   limits config (yaml)\n")
	fmt.Fprintf(os.Stderr, "  -o path        output path\n")
	fmt.Fprintf(os.Stderr, "  -format f      png or jpg (convert)\n")
	fmt.Fprintf(os.Stderr, "  -scale f       raster scale factor (convert)\n")
	fmt.Fprintf(os.Stderr, "  -quality f     jpeg quality in [0,1] (convert)\n")
}

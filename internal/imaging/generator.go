// Package imaging generates derivative images (full-size JPEGs, thumbnails)
// from the images of a generator source folder.
//
// Decoding covers TIFF (golang.org/x/image/tiff), PNG and JPEG; scaling uses
// the Catmull-Rom kernel from golang.org/x/image/draw.
package imaging

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // registers the TIFF decoder with image.Decode
	"golang.org/x/sync/errgroup"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/ctxutil"
	"github.com/kitodo/kscript/internal/domain"
	kerrors "github.com/kitodo/kscript/internal/errors"
)

// Mode selects which source images are processed.
type Mode string

const (
	// ModeAll regenerates every derivative, overwriting existing files.
	ModeAll Mode = "all"

	// ModeMissing only generates derivatives that do not exist yet.
	ModeMissing Mode = "missing"
)

// ParseMode converts the images: parameter of generateImages to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAll, ModeMissing:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: images scope %q (want %q or %q)", kerrors.ErrInvalidParameter, s, ModeAll, ModeMissing)
}

// Target is one derivative folder to generate into.
type Target struct {
	// Dir is the resolved absolute directory.
	Dir string
	// Folder carries the size settings and MIME type of the target.
	Folder domain.Folder
}

// Request describes one generation run for a process.
type Request struct {
	ProcessID  int
	SourceDir  string
	SourceMime string
	Targets    []Target
	Mode       Mode
}

// Result counts the files written and skipped.
type Result struct {
	Sources   int
	Generated int
	Skipped   int
}

// ProgressFunc is called after each source image with the number of images
// processed so far and the total.
type ProgressFunc func(done, total int)

// Generator produces derivative images.
type Generator struct {
	quality      int
	defaultWidth int
	logger       zerolog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithJPEGQuality sets the JPEG encoder quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(g *Generator) {
		g.quality = q
	}
}

// WithDefaultWidth sets the width used for derivative folders that have
// neither a scale nor a width.
func WithDefaultWidth(w int) Option {
	return func(g *Generator) {
		g.defaultWidth = w
	}
}

// NewGenerator creates a Generator.
func NewGenerator(logger zerolog.Logger, opts ...Option) *Generator {
	g := &Generator{
		quality:      constants.DefaultJPEGQuality,
		defaultWidth: constants.DefaultImageWidth,
		logger:       logger.With().Str("component", "imaging").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate writes a derivative of every source image into every target.
// The context is checked before each source image, so a stopped job exits
// after finishing at most one image.
func (g *Generator) Generate(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	var res Result

	sources, err := listSources(req.SourceDir, req.SourceMime)
	if err != nil {
		return res, err
	}
	if len(sources) == 0 {
		return res, fmt.Errorf("%w in %s", kerrors.ErrNoImages, req.SourceDir)
	}
	res.Sources = len(sources)

	for _, t := range req.Targets {
		if err := os.MkdirAll(t.Dir, 0o750); err != nil {
			return res, fmt.Errorf("failed to create target folder %s: %w", t.Dir, err)
		}
	}

	for i, name := range sources {
		if err := ctxutil.Canceled(ctx); err != nil {
			return res, err
		}

		generated, skipped, err := g.generateOne(ctx, req, name)
		res.Generated += generated
		res.Skipped += skipped
		if err != nil {
			return res, err
		}
		if progress != nil {
			progress(i+1, len(sources))
		}
	}

	g.logger.Info().
		Int("process_id", req.ProcessID).
		Int("sources", res.Sources).
		Int("generated", res.Generated).
		Int("skipped", res.Skipped).
		Msg("derivatives generated")
	return res, nil
}

// generateOne decodes one source image and writes all its derivatives in parallel.
func (g *Generator) generateOne(ctx context.Context, req Request, name string) (generated, skipped int, err error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	pending := make([]Target, 0, len(req.Targets))
	outputs := make([]string, 0, len(req.Targets))
	for _, t := range req.Targets {
		out := filepath.Join(t.Dir, base+outputExtension(t.Folder))
		if req.Mode == ModeMissing {
			if _, statErr := os.Stat(out); statErr == nil {
				skipped++
				continue
			}
		}
		pending = append(pending, t)
		outputs = append(outputs, out)
	}
	if len(pending) == 0 {
		return 0, skipped, nil
	}

	src, err := decodeFile(filepath.Join(req.SourceDir, name))
	if err != nil {
		return 0, skipped, err
	}

	eg, _ := errgroup.WithContext(ctx)
	for i, t := range pending {
		eg.Go(func() error {
			w, h, err := g.targetSize(src.Bounds(), t.Folder)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			dst := image.NewRGBA(image.Rect(0, 0, w, h))
			draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
			return g.write(outputs[i], dst, t.Folder)
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, skipped, err
	}
	return len(pending), skipped, nil
}

// targetSize computes the derivative dimensions, keeping the aspect ratio.
func (g *Generator) targetSize(b image.Rectangle, f domain.Folder) (int, int, error) {
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", kerrors.ErrEmptyImage, sw, sh)
	}
	var w int
	switch {
	case f.ImageWidth > 0:
		w = f.ImageWidth
	case f.ImageScale > 0:
		w = int(math.Round(float64(sw) * f.ImageScale))
	default:
		w = g.defaultWidth
	}
	w = max(w, 1)
	h := max(int(math.Round(float64(sh)*float64(w)/float64(sw))), 1)
	return w, h, nil
}

// write encodes img to path via a temp file and rename.
func (g *Generator) write(path string, img image.Image, f domain.Folder) error {
	tmp := path + ".tmp"
	out, err := os.Create(tmp) //#nosec G304 -- path is built from configured folders
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if f.Extension() == ".png" {
		err = png.Encode(out, img)
	} else {
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: g.quality})
	}
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}

// outputExtension returns the file extension for derivatives in folder f.
// Derivatives are JPEG unless the folder is configured for PNG.
func outputExtension(f domain.Folder) string {
	if f.Extension() == ".png" {
		return ".png"
	}
	return ".jpg"
}

// sourceExtensions maps a source MIME type to the file extensions it accepts.
//
//nolint:gochecknoglobals // Read-only lookup table
var sourceExtensions = map[string][]string{
	"image/tiff": {".tif", ".tiff"},
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
}

// listSources returns the sorted names of the images in dir that match mime.
// An unknown or empty MIME type accepts every supported extension.
func listSources(dir, mime string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: source folder %s does not exist", kerrors.ErrNoImages, dir)
		}
		return nil, fmt.Errorf("failed to read source folder: %w", err)
	}

	accepted, ok := sourceExtensions[strings.ToLower(mime)]
	if !ok {
		for _, exts := range sourceExtensions {
			accepted = append(accepted, exts...)
		}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, a := range accepted {
			if ext == a {
				names = append(names, e.Name())
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// decodeFile opens and decodes an image in any registered format.
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path) //#nosec G304 -- path comes from a directory listing of the source folder
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

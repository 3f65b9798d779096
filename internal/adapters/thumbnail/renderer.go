// Package thumbnail renders video thumbnails: a background image cropped to
// 1280x720 with the title drawn over a darkened band.
package thumbnail

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 1280
	Height = 720

	// MaxLineRunes is the wrap width for the title.
	MaxLineRunes = 20

	fontSize = 110
)

var (
	titleColor  = color.RGBA{R: 0xf7, G: 0xd0, B: 0x5a, A: 0xff}
	shadowColor = color.RGBA{A: 0xff}
	bandColor   = color.RGBA{A: 0x78}
	plainColor  = color.RGBA{R: 0x1d, G: 0x1a, B: 0x2b, A: 0xff}
)

var (
	// ErrNoBackgrounds is returned when the backgrounds directory holds no
	// background*.png files.
	ErrNoBackgrounds = errors.New("no background images found")

	// ErrNoArabicGlyphs is returned for a font that cannot draw shaped Arabic.
	ErrNoArabicGlyphs = errors.New("font has no Arabic glyphs")
)

// DejaVu Sans Bold covers the Arabic block and Arabic Presentation Forms-B.
//
//go:embed fonts/DejaVuSans-Bold.ttf
var defaultFont []byte

// requiredArabic holds base letters and presentation forms every usable font
// must map.
const requiredArabic = "\u0627\u0628\u0639\u0644\uFE8D\uFE8E\uFE91\uFE92\uFECA\uFEFB"

// Renderer draws thumbnails.
type Renderer struct {
	backgroundsDir string
	face           font.Face
	log            *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Renderer. backgroundsDir may be empty for a plain background.
// fontPath names a TrueType/OpenType font with Arabic coverage; empty selects
// the embedded DejaVu Sans Bold.
func New(backgroundsDir, fontPath string, log *slog.Logger) (*Renderer, error) {
	face, err := loadFace(fontPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		backgroundsDir: backgroundsDir,
		face:           face,
		log:            log,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func loadFace(path string) (font.Face, error) {
	data, name := defaultFont, "DejaVuSans-Bold.ttf"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data, name = b, path
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	if err := checkArabic(f); err != nil {
		return nil, fmt.Errorf("font %s: %w", name, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: fontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

func checkArabic(f *opentype.Font) error {
	var buf sfnt.Buffer
	for _, r := range requiredArabic {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil {
			return err
		}
		if idx == 0 {
			return fmt.Errorf("%w: missing U+%04X", ErrNoArabicGlyphs, r)
		}
	}
	return nil
}

// RenderThumbnail implements automation.ThumbnailRenderer.
func (r *Renderer) RenderThumbnail(ctx context.Context, title, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))

	bg, name, err := r.background()
	if err != nil {
		return err
	}
	if bg != nil {
		draw.CatmullRom.Scale(dst, dst.Bounds(), bg, coverRect(bg.Bounds(), Width, Height), draw.Src, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(plainColor), image.Point{}, draw.Src)
	}

	lines := WrapTitle(title, MaxLineRunes)
	r.drawTitle(dst, lines)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		os.Remove(outPath)
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	r.log.Info("thumbnail rendered", slog.String("background", name), slog.Int("lines", len(lines)))
	return nil
}

// background picks a random background*.png. It returns a nil image when no
// backgrounds directory is configured.
func (r *Renderer) background() (image.Image, string, error) {
	if r.backgroundsDir == "" {
		return nil, "", nil
	}
	files, err := filepath.Glob(filepath.Join(r.backgroundsDir, "background*.png"))
	if err != nil {
		return nil, "", fmt.Errorf("list backgrounds: %w", err)
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("%w in %s", ErrNoBackgrounds, r.backgroundsDir)
	}
	r.mu.Lock()
	path := files[r.rnd.Intn(len(files))]
	r.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open background: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode background %s: %w", filepath.Base(path), err)
	}
	return img, filepath.Base(path), nil
}

// drawTitle draws lines centred over a darkened band. Each line is shaped and
// put in visual order first, since font.Drawer lays glyphs out left to right.
func (r *Renderer) drawTitle(dst *image.RGBA, lines []string) {
	if len(lines) == 0 {
		return
	}
	m := r.face.Metrics()
	lineHeight := m.Height.Ceil() * 13 / 10
	total := lineHeight * len(lines)
	top := (Height - total) / 2

	band := image.Rect(0, top-lineHeight/3, Width, top+total+lineHeight/3).Intersect(dst.Bounds())
	draw.Draw(dst, band, image.NewUniform(bandColor), image.Point{}, draw.Over)

	d := &font.Drawer{Dst: dst, Face: r.face}
	for i, line := range lines {
		line = VisualOrder(ShapeArabic(line))
		width := d.MeasureString(line).Ceil()
		x := (Width - width) / 2
		baseline := top + i*lineHeight + m.Ascent.Ceil()

		d.Src = image.NewUniform(shadowColor)
		d.Dot = fixed.P(x+4, baseline+4)
		d.DrawString(line)

		d.Src = image.NewUniform(titleColor)
		d.Dot = fixed.P(x, baseline)
		d.DrawString(line)
	}
}

// coverRect returns the centred region of src with the aspect ratio w:h, so
// scaling it to w x h fills the frame without distortion.
func coverRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw*h > sh*w {
		cw := sh * w / h
		x := src.Min.X + (sw-cw)/2
		return image.Rect(x, src.Min.Y, x+cw, src.Max.Y)
	}
	ch := sw * h / w
	y := src.Min.Y + (sh-ch)/2
	return image.Rect(src.Min.X, y, src.Max.X, y+ch)
}

// WrapTitle splits title on spaces into lines of at most max runes. A single
// word longer than max gets a line of its own.
func WrapTitle(title string, max int) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(title) {
		if cur == "" {
			cur = word
			continue
		}
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) > max {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur += " " + word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

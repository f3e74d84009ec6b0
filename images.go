package clubsite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/clubsite/notify"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 82
	maxUploadSize = 10 << 20
	uploadsSubdir = "uploads"
)

// processImage decodes src, scales it down to maxImageWidth and re-encodes
// it as JPEG. Featured images for events and posts all go through here.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img, w, h = dst, maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	name := Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if name == "" {
		name = "image"
	}
	return Image{
		Filename:   name + ".jpg",
		Width:      w,
		Height:     h,
		Size:       int64(buf.Len()),
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}, buf.Bytes(), nil
}

// uniqueFilename appends a counter until name is free in dir.
func uniqueFilename(dir, name string) string {
	base := strings.TrimSuffix(name, ".jpg")
	candidate := name
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, n)
	}
}

// listImages reads the uploads directory, newest first.
func listImages(dir, urlPrefix string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Image
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		img := Image{
			Filename:   e.Name(),
			URL:        urlPrefix + e.Name(),
			Size:       info.Size(),
			UploadedAt: info.ModTime().UTC().Format(time.RFC3339),
		}
		if f, err := os.Open(filepath.Join(dir, e.Name())); err == nil {
			if cfg, _, err := image.DecodeConfig(f); err == nil {
				img.Width, img.Height = cfg.Width, cfg.Height
			}
			f.Close()
		}
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt > out[j].UploadedAt })
	return out, nil
}

const uploadsURL = "/public/" + uploadsSubdir + "/"

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return a.imageResult(c, a.message("error", "image.failed", map[string]any{"Error": "no image file provided"}))
	}
	if file.Size > maxUploadSize {
		return a.imageResult(c, a.message("error", "image.failed", map[string]any{"Error": "file too large (max 10MB)"}))
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(src, file.Filename)
	if err != nil {
		return a.imageResult(c, a.message("error", "image.failed", map[string]any{"Error": err.Error()}))
	}

	dir := a.uploadsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	img.Filename = uniqueFilename(dir, img.Filename)
	if err := os.WriteFile(filepath.Join(dir, img.Filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	a.Logger.Named("images").Info("image uploaded", zap.String("file", img.Filename), zap.Int64("bytes", img.Size))
	return a.imageResult(c, a.message("success", "image.uploaded", map[string]any{"Name": uploadsURL + img.Filename}))
}

func (a *App) handleImageDelete(c echo.Context) error {
	name := filepath.Base(c.Param("filename"))
	if name == "." || name == "/" || !strings.HasSuffix(name, ".jpg") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}
	if err := os.Remove(filepath.Join(a.uploadsDir(), name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return a.imageResult(c, a.message("success", "image.deleted", map[string]any{"Name": name}))
}

func (a *App) imageResult(c echo.Context, msg notify.Message) error {
	if err := addFlash(c, msg); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/images/")
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := listImages(a.uploadsDir(), uploadsURL)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminImages(ImagesPage{
		Page:   a.page(c, PageMeta{Title: "Images | " + a.Config.Name}),
		Images: images,
	}))
}

package qr

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// Generator renders scannable code images for public passport pages
// and stores them under the upload directory.
type Generator struct {
	baseURL   string
	uploadDir string
}

// NewGenerator creates a generator. baseURL is the externally visible
// origin of the service, uploadDir the root of served static files.
func NewGenerator(baseURL, uploadDir string) *Generator {
	return &Generator{baseURL: baseURL, uploadDir: uploadDir}
}

// PublicURL returns the shareable public page URL for an identifier.
func (g *Generator) PublicURL(publicID string) string {
	return g.baseURL + "/p/" + publicID
}

// Generate writes a PNG encoding the public page URL and returns the
// path the image is served under. Errors here are non-fatal to record
// creation; the caller logs them and can retry later.
func (g *Generator) Generate(publicID string) (string, error) {
	dir := filepath.Join(g.uploadDir, "qr")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("qr: create dir: %w", err)
	}

	file := filepath.Join(dir, publicID+".png")
	if err := qrcode.WriteFile(g.PublicURL(publicID), qrcode.Medium, imageSize, file); err != nil {
		return "", fmt.Errorf("qr: encode: %w", err)
	}

	return "/uploads/qr/" + publicID + ".png", nil
}

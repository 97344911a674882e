// Package qrcode renders join links as PNG data URLs.
package qrcode

import (
	"encoding/base64"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// Generator produces QR data URLs for classroom join links.
type Generator struct {
	baseURL string
	size    int
}

// NewGenerator builds a generator that prefixes relative links with baseURL.
func NewGenerator(baseURL string, size int) *Generator {
	if size <= 0 {
		size = defaultSize
	}
	return &Generator{baseURL: baseURL, size: size}
}

// DataURL encodes baseURL+link as a base64 PNG data URL.
func (g *Generator) DataURL(link string) (string, error) {
	png, err := goqrcode.Encode(g.baseURL+link, goqrcode.Medium, g.size)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Package qr renders arbitrary text (addresses, payment URIs) as PNG QR codes.
package qr

import (
	"encoding/base64"
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 300

var (
	Foreground = color.Black
	Background = color.White
)

// Render encodes data as a size x size PNG. Data beyond QR capacity fails
// inside the encoder.
func Render(data string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	code, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	code.ForegroundColor = Foreground
	code.BackgroundColor = Background
	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}

// GenerateDataURL returns data as an embeddable "data:image/png;base64," URL.
func GenerateDataURL(data string, size int) (string, error) {
	png, err := Render(data, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

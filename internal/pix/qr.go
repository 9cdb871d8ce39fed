package pix

import (
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length in pixels.
const DefaultQRSize = 256

// QRCode renders the payload as a PNG with high error correction.
func QRCode(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(payload, qrcode.High, size)
}

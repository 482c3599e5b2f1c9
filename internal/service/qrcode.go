package service

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const DefaultQRSize = 300

type QREncoder interface {
	Encode(content string) ([]byte, error)
}

// PNGEncoder renders QR codes as square PNG images.
type PNGEncoder struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewPNGEncoder() PNGEncoder {
	return PNGEncoder{Size: DefaultQRSize, Level: qrcode.Medium}
}

func (e PNGEncoder) Encode(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, e.Level, e.Size)
	if err != nil {
		return nil, fmt.Errorf("qrcode.Encode -> %w", err)
	}

	return png, nil
}

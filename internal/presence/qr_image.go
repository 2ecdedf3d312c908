package presence

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCodePNG renders a scannable PNG for a presence token. The encoded payload
// is the scan URL the voting-site display points phones at.
func QRCodePNG(baseURL, tokenValue string, size int) ([]byte, error) {
	if size == 0 {
		size = 512
	}

	if size < 128 || size > 2048 {
		return nil, errors.New("invalid size: must be between 128 and 2048")
	}

	payload := fmt.Sprintf("%s/scan/%s", baseURL, tokenValue)

	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	qr.DisableBorder = false

	return qr.PNG(size)
}

package qr

import (
	"sync"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 240

// Cache renders a QR PNG for a URL and memoizes it per URL value, so the
// image is regenerated only when the join URL changes. Generation failures
// are returned to the caller and never cached.
type Cache struct {
	mu  sync.Mutex
	url string
	png []byte
}

func (c *Cache) PNG(url string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.url == url && c.png != nil {
		return c.png, nil
	}
	png, err := qrcode.Encode(url, qrcode.Medium, imageSize)
	if err != nil {
		return nil, err
	}
	c.url = url
	c.png = png
	return png, nil
}

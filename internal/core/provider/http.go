package provider

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxImageBytes caps any image body read from a provider.
const maxImageBytes = 20 << 20

const userAgent = "newslk-thumbnails/1.0"

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 3 * time.Minute}
}

func readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrRejectedPayload, maxImageBytes)
	}
	return data, nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// promptSeed is a stable 32-bit string hash so the same prompt asks for the
// same image.
func promptSeed(prompt string) int64 {
	var h int32
	for _, r := range prompt {
		h = 31*h + int32(r)
	}
	seed := int64(h)
	if seed < 0 {
		seed = -seed
	}
	return seed
}

package provider

import (
	"context"
)

// ImageGenerator renders a prompt into image bytes. Implemented by the
// Gemini platform service.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

// Imagen generates through Google's Imagen models.
type Imagen struct {
	gen ImageGenerator
}

// NewImagen wraps gen; a nil gen yields a provider that is always skipped.
func NewImagen(gen ImageGenerator) *Imagen { return &Imagen{gen: gen} }

func (i *Imagen) Name() string { return "imagen" }
func (i *Imagen) Tier() Tier   { return TierQuality }

func (i *Imagen) Attempt(ctx context.Context, prompt string) (*Image, error) {
	if i.gen == nil {
		return nil, ErrNotConfigured
	}
	data, mime, err := i.gen.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if mime == "" {
		mime = "image/png"
	}
	return &Image{Data: data, ContentType: mime}, nil
}

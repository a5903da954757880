// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/framegrab/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// ResizeImage resizes an image to the specified dimensions.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Stamp draws text on a bar across the bottom of a copy of img.
func (r *Renderer) Stamp(img image.Image, text string, style ports.StampStyle) image.Image {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)

	if style.FontPath != "" {
		if err := dc.LoadFontFace(style.FontPath, style.FontSize); err != nil {
			// Fall back to default
		}
	}

	_, textH := dc.MeasureString(text)
	barH := textH*1.6 + 2
	if style.Background != nil {
		dc.SetColor(style.Background)
		dc.DrawRectangle(0, float64(b.Dy())-barH, float64(b.Dx()), barH)
		dc.Fill()
	}

	dc.SetColor(style.Color)
	dc.DrawStringAnchored(text, 4, float64(b.Dy())-barH/2, 0, 0.5)
	return dc.Image()
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)

package ports

import (
	"image"
	"image/color"
)

// Renderer post-processes a decoded frame before it is encoded.
type Renderer interface {
	// ResizeImage scales an image to the given dimensions.
	ResizeImage(img image.Image, width, height int) image.Image

	// Stamp draws a caption bar with the given text at the bottom of the image.
	Stamp(img image.Image, text string, style StampStyle) image.Image
}

// StampStyle configures the caption drawn by Renderer.Stamp.
type StampStyle struct {
	FontSize   float64
	FontPath   string // optional TrueType font; the built-in face is used when empty
	Color      color.Color
	Background color.Color
}

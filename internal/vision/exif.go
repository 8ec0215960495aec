package vision

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// NormalizeOrientation rewrites the JPEG at path upright when its EXIF
// orientation tag says the camera stored it rotated. Phone cameras do this
// routinely and the classifier was trained on upright crops.
func NormalizeOrientation(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}

	meta, err := exif.Decode(file)
	if err != nil {
		// No EXIF block at all is the common case for re-encoded images.
		_ = file.Close()
		return nil
	}

	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		_ = file.Close()
		return nil
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation <= 1 {
		_ = file.Close()
		return nil
	}

	if _, err := file.Seek(0, 0); err != nil {
		_ = file.Close()
		return err
	}
	img, err := jpeg.Decode(file)
	_ = file.Close()
	if err != nil {
		return fmt.Errorf("decode jpeg: %w", err)
	}

	upright := reorient(img, orientation)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return jpeg.Encode(out, upright, &jpeg.Options{Quality: 92})
}

// reorient applies the inverse of the stored EXIF orientation.
func reorient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 3:
		return rotate180(img)
	case 6:
		return rotate90(img)
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.Y-1-y, x-b.Min.X, img.At(x, y))
		}
	}
	return out
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return out
}

func rotate270(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(y-b.Min.Y, b.Max.X-1-x, img.At(x, y))
		}
	}
	return out
}

package convert

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

const jpegQuality = 95

// imageToImage decodes input and re-encodes it in the format implied by
// output's extension. Alpha is dropped for formats without it.
func imageToImage(input, output string) (string, error) {
	img, err := decodeImage(input)
	if err != nil {
		return "", err
	}
	if err := encodeImage(output, img); err != nil {
		return "", err
	}
	return fmt.Sprintf("Image conversion to %s completed.", output), nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mterrors.NewIOError(fmt.Sprintf("opening image %s", path), err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, mterrors.Wrap(mterrors.KindParse, fmt.Sprintf("Image conversion failed: cannot decode %s", path), err)
	}
	return img, nil
}

func encodeImage(path string, img image.Image) error {
	enc, err := encoderFor(filepath.Ext(path))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return mterrors.NewIOError(fmt.Sprintf("creating image %s", path), err)
	}
	if err := enc(f, img); err != nil {
		f.Close()
		_ = os.Remove(path)
		return mterrors.NewIOError(fmt.Sprintf("Image conversion failed: encoding %s", path), err)
	}
	if err := f.Close(); err != nil {
		return mterrors.NewIOError(fmt.Sprintf("writing image %s", path), err)
	}
	return nil
}

func encoderFor(ext string) (func(io.Writer, image.Image) error, error) {
	switch normalizeExt(ext) {
	case ".png":
		return png.Encode, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tiff", ".tif":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	}
	return nil, mterrors.New(mterrors.KindUnsupported, fmt.Sprintf("unsupported image format %q", ext))
}

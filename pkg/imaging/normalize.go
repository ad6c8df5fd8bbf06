package imaging

import "image"

// ShrinkStep is the factor applied on every pass of Normalize.
const ShrinkStep = 0.9

// Normalize converts data to PNG (PNG input is kept as is) and shrinks it
// until the encoding fits in maxBytes or the image is down to a single pixel.
func Normalize(data []byte, maxBytes int) (*Result, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	res := &Result{Data: data, Format: format, Width: b.Dx(), Height: b.Dy()}
	if format != FormatPNG {
		if res, err = encodePNGResult(img); err != nil {
			return nil, err
		}
	}

	factor := 1.0
	for len(res.Data) > maxBytes && (res.Width > 1 || res.Height > 1) {
		factor *= ShrinkStep
		if res, err = encodePNGResult(Scale(img, factor)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func encodePNGResult(img image.Image) (*Result, error) {
	out, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Result{Data: out, Format: FormatPNG, Width: b.Dx(), Height: b.Dy()}, nil
}

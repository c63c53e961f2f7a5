package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	apperrors "go-media-identifier/internal/errors"
)

// Prepared is the decoded, normalized form handed to recognition engines.
// It is produced and consumed within one pipeline invocation and never
// mutated after creation.
type Prepared struct {
	Src    image.Image
	Gray   *image.Gray
	Width  int
	Height int
	Format string
}

// Options configures image preparation.
type Options struct {
	MaxEdge    int  // longer edge bound, aspect ratio preserved
	Binarize   bool // adaptive AND Otsu thresholding
	Denoise    bool
	AutoInvert bool // flip light-on-dark text to dark-on-light
}

// DefaultOptions returns preparation options tuned for OCR input.
func DefaultOptions() Options {
	return Options{
		MaxEdge:    1000,
		Binarize:   true,
		Denoise:    true,
		AutoInvert: true,
	}
}

// FastOptions returns options for a cheap contrast/sharpen-only pass.
func FastOptions() Options {
	opts := DefaultOptions()
	opts.Binarize = false
	opts.Denoise = false
	return opts
}

// Prepare decodes raw bytes and normalizes them for recognition. Decode
// failure of the original bytes is the only hard failure; a degenerate
// enhancement result falls back to the contrast/sharpen-only path.
func Prepare(raw []byte, opts Options) (*Prepared, error) {
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.NewImageDecodeError("image bytes could not be decoded", err)
	}

	if opts.MaxEdge > 0 {
		src = boundLongerEdge(src, opts.MaxEdge)
	}

	gray := toGray(src)
	gray = stretchContrast(gray)

	if opts.Denoise {
		gray = selectiveDenoise(gray)
	}
	if opts.AutoInvert && meanLuminance(gray) < 110 {
		gray = invert(gray)
	}
	if opts.Binarize {
		bin := binarize(gray)
		if degenerate(bin) {
			// Thresholding wiped the frame; keep the enhanced grayscale
			// and sharpen it instead.
			gray = sharpen(gray)
		} else {
			gray = bin
		}
	} else {
		gray = sharpen(gray)
	}

	bounds := src.Bounds()
	return &Prepared{
		Src:    src,
		Gray:   gray,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}, nil
}

// boundLongerEdge scales the image down so its longer edge is at most maxEdge.
func boundLongerEdge(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longer := w
	if h > longer {
		longer = h
	}
	if longer <= maxEdge {
		return src
	}

	scale := float64(maxEdge) / float64(longer)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := bounds.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			sx := bounds.Min.X + x*w/nw
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, src, bounds.Min, draw.Src)
	return gray
}

// stretchContrast applies a global min/max normalization over the luminance
// histogram, ignoring the darkest and brightest 1% to resist outlier pixels.
func stretchContrast(gray *image.Gray) *image.Gray {
	hist := histogram(gray)
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return gray
	}

	clip := total / 100
	lo, hi := 0, 255
	acc := 0
	for i := 0; i < 256; i++ {
		acc += hist[i]
		if acc > clip {
			lo = i
			break
		}
	}
	acc = 0
	for i := 255; i >= 0; i-- {
		acc += hist[i]
		if acc > clip {
			hi = i
			break
		}
	}
	if hi <= lo {
		return gray
	}

	out := image.NewGray(gray.Bounds())
	scale := 255.0 / float64(hi-lo)
	for i, p := range gray.Pix {
		v := float64(int(p)-lo) * scale
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v)
	}
	return out
}

// selectiveDenoise replaces a pixel with its 3x3 neighborhood mean only when
// the pixel is close to that mean, which smooths flat regions without
// softening text edges.
func selectiveDenoise(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)
	copy(out.Pix, gray.Pix)

	const edgeGuard = 24
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sum := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sum += int(gray.GrayAt(bounds.Min.X+x+kx, bounds.Min.Y+y+ky).Y)
				}
			}
			mean := sum / 9
			cur := int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			if abs(cur-mean) < edgeGuard {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: uint8(mean)})
			}
		}
	}
	return out
}

func invert(gray *image.Gray) *image.Gray {
	out := image.NewGray(gray.Bounds())
	for i, p := range gray.Pix {
		out.Pix[i] = 255 - p
	}
	return out
}

// sharpen applies a 3x3 unsharp kernel.
func sharpen(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)
	copy(out.Pix, gray.Pix)

	kernel := [3][3]int{{0, -1, 0}, {-1, 5, -1}, {0, -1, 0}}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var val int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					pixel := int(gray.GrayAt(bounds.Min.X+x+kx, bounds.Min.Y+y+ky).Y)
					val += pixel * kernel[ky+1][kx+1]
				}
			}
			if val < 0 {
				val = 0
			} else if val > 255 {
				val = 255
			}
			out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: uint8(val)})
		}
	}
	return out
}

// binarize combines an adaptive local mean threshold with a global Otsu
// threshold via logical AND: a pixel is foreground only when both methods
// agree, which suppresses the noise either method produces alone.
func binarize(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)

	global := otsuThreshold(histogram(gray))
	integral := integralImage(gray)

	const window = 15
	const offset = 8
	half := window / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := x-half, y-half
			x1, y1 := x+half, y+half
			if x0 < 0 {
				x0 = 0
			}
			if y0 < 0 {
				y0 = 0
			}
			if x1 >= w {
				x1 = w - 1
			}
			if y1 >= h {
				y1 = h - 1
			}
			area := (x1 - x0 + 1) * (y1 - y0 + 1)
			sum := integral[(y1+1)*(w+1)+(x1+1)] - integral[y0*(w+1)+(x1+1)] -
				integral[(y1+1)*(w+1)+x0] + integral[y0*(w+1)+x0]
			localMean := int(sum) / area

			p := int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			dark := p < localMean-offset && p < int(global)
			if dark {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 0})
			} else {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// otsuThreshold finds the luminance split minimizing intra-class variance.
func otsuThreshold(hist [256]int) uint8 {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVar float64
	best := 128
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			best = t
		}
	}
	return uint8(best)
}

func histogram(gray *image.Gray) [256]int {
	var hist [256]int
	bounds := gray.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}
	return hist
}

func integralImage(gray *image.Gray) []int64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[(y+1)*(w+1)+(x+1)] = integral[y*(w+1)+(x+1)] + rowSum
		}
	}
	return integral
}

func meanLuminance(gray *image.Gray) float64 {
	if len(gray.Pix) == 0 {
		return 0
	}
	var sum int64
	for _, p := range gray.Pix {
		sum += int64(p)
	}
	return float64(sum) / float64(len(gray.Pix))
}

// degenerate reports a binarized frame that is nearly all foreground or all
// background, which means thresholding destroyed the content.
func degenerate(bin *image.Gray) bool {
	if len(bin.Pix) == 0 {
		return true
	}
	darkCount := 0
	for _, p := range bin.Pix {
		if p < 128 {
			darkCount++
		}
	}
	ratio := float64(darkCount) / float64(len(bin.Pix))
	return ratio < 0.002 || ratio > 0.95
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

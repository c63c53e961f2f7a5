package recognize

import (
	"image"
	"math"
)

// DetectTextRegions finds horizontal bands likely to contain text by
// projecting Sobel edge magnitudes onto rows. Title cards and captions show
// up as narrow bands of dense high-contrast edges; each band is padded and
// returned as a full-width box for per-region OCR.
func DetectTextRegions(gray *image.Gray) []image.Rectangle {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 16 || h < 16 {
		return nil
	}

	rowEdges := make([]int, h)
	for y := 1; y < h-1; y++ {
		count := 0
		for x := 1; x < w-1; x++ {
			gx := int(gray.GrayAt(bounds.Min.X+x+1, bounds.Min.Y+y-1).Y) - int(gray.GrayAt(bounds.Min.X+x-1, bounds.Min.Y+y-1).Y) +
				2*int(gray.GrayAt(bounds.Min.X+x+1, bounds.Min.Y+y).Y) - 2*int(gray.GrayAt(bounds.Min.X+x-1, bounds.Min.Y+y).Y) +
				int(gray.GrayAt(bounds.Min.X+x+1, bounds.Min.Y+y+1).Y) - int(gray.GrayAt(bounds.Min.X+x-1, bounds.Min.Y+y+1).Y)

			gy := int(gray.GrayAt(bounds.Min.X+x-1, bounds.Min.Y+y+1).Y) - int(gray.GrayAt(bounds.Min.X+x-1, bounds.Min.Y+y-1).Y) +
				2*int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y+1).Y) - 2*int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y-1).Y) +
				int(gray.GrayAt(bounds.Min.X+x+1, bounds.Min.Y+y+1).Y) - int(gray.GrayAt(bounds.Min.X+x+1, bounds.Min.Y+y-1).Y)

			magnitude := math.Sqrt(float64(gx*gx + gy*gy))
			if magnitude > 50 {
				count++
			}
		}
		rowEdges[y] = count
	}

	// A row belongs to a text band when at least 5% of its pixels are edges.
	minEdges := w / 20
	const pad = 10
	const minBand = 6

	var regions []image.Rectangle
	start := -1
	for y := 0; y < h; y++ {
		active := rowEdges[y] >= minEdges
		switch {
		case active && start < 0:
			start = y
		case !active && start >= 0:
			if y-start >= minBand {
				regions = append(regions, paddedBand(bounds, start, y, pad))
			}
			start = -1
		}
	}
	if start >= 0 && h-start >= minBand {
		regions = append(regions, paddedBand(bounds, start, h, pad))
	}

	// One band spanning nearly the whole frame is not a region split; the
	// caller already OCRed the whole image.
	if len(regions) == 1 && regions[0].Dy() > h*9/10 {
		return nil
	}
	return regions
}

func paddedBand(bounds image.Rectangle, startRow, endRow, pad int) image.Rectangle {
	y0 := bounds.Min.Y + startRow - pad
	y1 := bounds.Min.Y + endRow + pad
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	if y1 > bounds.Max.Y {
		y1 = bounds.Max.Y
	}
	return image.Rect(bounds.Min.X, y0, bounds.Max.X, y1)
}

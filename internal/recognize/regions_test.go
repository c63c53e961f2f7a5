package recognize

import (
	"image"
	"image/color"
	"testing"
)

// fillStripes paints alternating black/white vertical stripes into the given
// rows, producing the dense edge response a text band would.
func fillStripes(img *image.Gray, yStart, yEnd int) {
	for y := yStart; y < yEnd; y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			value := uint8(255)
			if (x/2)%2 == 0 {
				value = 0
			}
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
}

func TestDetectTextRegions_FindsBand(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	// Uniform background, one striped band near the bottom third.
	fillStripes(img, 140, 160)

	regions := DetectTextRegions(img)
	if len(regions) != 1 {
		t.Fatalf("Expected 1 region, got %d", len(regions))
	}

	region := regions[0]
	if region.Min.X != 0 || region.Max.X != 200 {
		t.Errorf("Expected full-width region, got %v", region)
	}
	if region.Min.Y > 140 || region.Max.Y < 160 {
		t.Errorf("Expected region to cover rows 140-160, got %v", region)
	}
}

func TestDetectTextRegions_MultipleBands(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	fillStripes(img, 20, 40)
	fillStripes(img, 150, 170)

	regions := DetectTextRegions(img)
	if len(regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d", len(regions))
	}
	if regions[0].Min.Y >= regions[1].Min.Y {
		t.Errorf("Expected regions in top-to-bottom order, got %v", regions)
	}
}

func TestDetectTextRegions_UniformImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}

	if regions := DetectTextRegions(img); regions != nil {
		t.Errorf("Expected no regions on uniform image, got %v", regions)
	}
}

func TestDetectTextRegions_FullFrameBandIgnored(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	fillStripes(img, 0, 100)

	if regions := DetectTextRegions(img); regions != nil {
		t.Errorf("Expected near-full-frame band to be dropped, got %v", regions)
	}
}

func TestDetectTextRegions_TinyImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	if regions := DetectTextRegions(img); regions != nil {
		t.Errorf("Expected no regions on tiny image, got %v", regions)
	}
}

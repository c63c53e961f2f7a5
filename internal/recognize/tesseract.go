package recognize

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"
	"unicode"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/logger"
	"go-media-identifier/internal/preprocess"
)

// OCRConfig is one layout/language assumption for a Tesseract run. OCR is
// highly sensitive to the page segmentation mode; no single mode is reliably
// best on video frames, so several are tried and merged by score.
type OCRConfig struct {
	Name     string
	Language string
	PageSeg  gosseract.PageSegMode
}

// DefaultOCRConfigs returns the shipped configuration ladder. Order matters:
// it is the tie-break order for the score merge.
func DefaultOCRConfigs() []OCRConfig {
	return []OCRConfig{
		{Name: "sparse", Language: "eng", PageSeg: gosseract.PSM_SPARSE_TEXT},
		{Name: "block", Language: "eng", PageSeg: gosseract.PSM_SINGLE_BLOCK},
		{Name: "line", Language: "eng", PageSeg: gosseract.PSM_SINGLE_LINE},
		{Name: "vertical", Language: "eng", PageSeg: gosseract.PSM_SINGLE_BLOCK_VERT_TEXT},
	}
}

// TesseractEngine runs gosseract under multiple configurations concurrently
// and keeps the best-scoring result. When whole-image OCR finds no alphabetic
// content it retries per detected text region before giving up.
type TesseractEngine struct {
	configs []OCRConfig
	weights ScoreWeights
}

// NewTesseractEngine creates the OCR engine.
func NewTesseractEngine(configs []OCRConfig, weights ScoreWeights) *TesseractEngine {
	if len(configs) == 0 {
		configs = DefaultOCRConfigs()
	}
	return &TesseractEngine{configs: configs, weights: weights}
}

func (e *TesseractEngine) Name() string { return SourceOCR }

// Recognize implements Engine.
func (e *TesseractEngine) Recognize(ctx context.Context, img *preprocess.Prepared) ([]Candidate, error) {
	encoded, err := encodePNG(img.Gray)
	if err != nil {
		return nil, apperrors.NewEngineUnavailableError("could not encode frame for OCR", err)
	}

	attempts, err := e.runConfigs(ctx, encoded)
	if err != nil {
		return nil, err
	}

	best := PickBest(attempts, e.weights)
	text := ""
	if best >= 0 {
		text = attempts[best].Text
		logger.WithFields(logrus.Fields{
			"config": attempts[best].Config,
			"chars":  len(text),
		}).Debug("whole-image OCR winner selected")
	}

	if !hasAlphabetic(text) {
		// Whole-image OCR found nothing readable; the expensive per-region
		// pass only runs on this path.
		text = e.recognizeRegions(ctx, img.Gray)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []Candidate{{Text: text, Source: SourceOCR, Confidence: ConfidenceUnset}}, nil
}

// runConfigs fans the configurations out across goroutines. Results land in
// a fixed slot per configuration so the merge stays deterministic.
func (e *TesseractEngine) runConfigs(ctx context.Context, encoded []byte) ([]Attempt, error) {
	attempts := make([]Attempt, len(e.configs))
	var wg sync.WaitGroup

	for i, cfg := range e.configs {
		wg.Add(1)
		go func(slot int, cfg OCRConfig) {
			defer wg.Done()
			text, err := runTesseract(encoded, cfg)
			if err != nil {
				logger.WithError(err).WithField("config", cfg.Name).Debug("OCR configuration failed")
				text = ""
			}
			attempts[slot] = Attempt{Config: cfg.Name, Text: text}
		}(i, cfg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return attempts, nil
	case <-ctx.Done():
		// In-flight tesseract calls are abandoned, not awaited.
		return nil, apperrors.NewEngineTimeoutError("OCR timed out", ctx.Err())
	}
}

// recognizeRegions OCRs each detected text band separately and concatenates
// whatever comes back.
func (e *TesseractEngine) recognizeRegions(ctx context.Context, gray *image.Gray) string {
	regions := DetectTextRegions(gray)
	if len(regions) == 0 {
		return ""
	}
	cfg := e.configs[0]

	var parts []string
	for _, r := range regions {
		if ctx.Err() != nil {
			break
		}
		sub := gray.SubImage(r).(*image.Gray)
		encoded, err := encodePNG(sub)
		if err != nil {
			continue
		}
		text, err := runTesseract(encoded, cfg)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(text))
	}
	return strings.Join(parts, "\n")
}

// runTesseract executes one gosseract pass. Clients are not safe for
// concurrent use, so each run gets its own.
func runTesseract(encoded []byte, cfg OCRConfig) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(cfg.Language); err != nil {
		return "", err
	}
	if err := client.SetPageSegMode(cfg.PageSeg); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(encoded); err != nil {
		return "", err
	}
	return client.Text()
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hasAlphabetic(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

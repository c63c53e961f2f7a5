package recognize

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	"github.com/agent-api/core/agent/bootstrap"
	"github.com/agent-api/ollama"
	"github.com/go-logr/logr"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/logger"
	"go-media-identifier/internal/preprocess"
)

const visionPrompt = "Identify the movie or TV series this frame is from. " +
	"Consider visible title text, logos, posters and recognizable actors. " +
	"Reply with up to 3 lines, each formatted as: <title or entity> | <confidence 0.0-1.0>. " +
	"Reply NONE if you cannot tell."

// maxEntityLength drops rambling model output; real titles and names are short.
const maxEntityLength = 40

// VisionAgentEngine asks a local vision model for semantic labels (title
// guesses, recognizable people). Its candidates carry model-reported
// confidence and rank ahead of literal OCR text.
type VisionAgentEngine struct {
	agent *agent.Agent
	floor float64
}

// VisionAgentConfig holds ollama connection settings.
type VisionAgentConfig struct {
	BaseURL string
	Port    int
	Model   string
	Floor   float64
}

// NewVisionAgentEngine connects to a running ollama instance and prepares a
// vision agent. The returned engine is safe for concurrent use.
func NewVisionAgentEngine(ctx context.Context, cfg VisionAgentConfig) (*VisionAgentEngine, error) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})
	agentLog := logr.FromSlogHandler(handler)

	provider := ollama.NewProvider(&ollama.ProviderOpts{
		BaseURL: cfg.BaseURL,
		Port:    cfg.Port,
		Logger:  &agentLog,
	})
	if err := provider.UseModel(ctx, &core.Model{ID: cfg.Model}); err != nil {
		return nil, apperrors.NewEngineUnavailableError("could not select vision model", err)
	}

	visionAgent, err := agent.NewAgent(
		bootstrap.WithProvider(provider),
		bootstrap.WithSystemPrompt("You are a film identification assistant. You answer tersely in the requested format."),
		bootstrap.WithLogger(&agentLog),
	)
	if err != nil {
		return nil, apperrors.NewEngineUnavailableError("could not create vision agent", err)
	}

	return &VisionAgentEngine{
		agent: visionAgent,
		floor: cfg.Floor,
	}, nil
}

func (e *VisionAgentEngine) Name() string { return SourceVision }

// Recognize implements Engine.
func (e *VisionAgentEngine) Recognize(ctx context.Context, img *preprocess.Prepared) ([]Candidate, error) {
	content, err := e.ask(ctx, visionPrompt, img)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewEngineTimeoutError("vision agent timed out", err)
		}
		return nil, apperrors.NewEngineUnavailableError("vision agent failed", err)
	}

	candidates := e.parseLabels(content)
	logger.WithField("labels", len(candidates)).Debug("vision agent candidates parsed")
	return candidates, nil
}

// Caption implements Captioner for the embedding matcher: a plain scene
// description rather than an identification attempt.
func (e *VisionAgentEngine) Caption(ctx context.Context, img *preprocess.Prepared) (string, error) {
	return e.ask(ctx, "Describe this frame in one or two sentences. "+
		"Mention the setting, notable objects and what any people are doing.", img)
}

// ask sends one prompt plus the frame inline and returns the model's final
// answer.
func (e *VisionAgentEngine) ask(ctx context.Context, prompt string, img *preprocess.Prepared) (string, error) {
	encoded, err := encodePNG(img.Src)
	if err != nil {
		return "", fmt.Errorf("could not encode frame: %w", err)
	}

	agg, err := e.agent.Run(
		ctx,
		agent.WithInput(prompt),
		agent.WithImageBase64(base64.StdEncoding.EncodeToString(encoded), "image/png"),
	)
	if err != nil {
		return "", err
	}

	last := agg.Pop()
	if last == nil || last.Content == "" {
		return "", fmt.Errorf("vision model returned no answer")
	}
	return last.Content, nil
}

// parseLabels turns the model's "<label> | <confidence>" lines into
// candidates, dropping anything under the confidence floor or too long to be
// a title.
func (e *VisionAgentEngine) parseLabels(content string) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "NONE") {
			continue
		}

		label := line
		confidence := ConfidenceUnset
		if idx := strings.LastIndex(line, "|"); idx >= 0 {
			label = strings.TrimSpace(line[:idx])
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(line[idx+1:]), 64); err == nil {
				confidence = parsed
			}
		}

		label = strings.Trim(label, `"'*- `)
		if label == "" || len(label) >= maxEntityLength {
			continue
		}
		if confidence >= 0 && confidence < e.floor {
			continue
		}
		candidates = append(candidates, Candidate{
			Text:       label,
			Source:     SourceVision,
			Confidence: confidence,
		})
		if len(candidates) == 3 {
			break
		}
	}
	return candidates
}

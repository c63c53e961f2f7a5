package recognize

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	openai "github.com/sashabaranov/go-openai"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/logger"
	"go-media-identifier/internal/preprocess"
)

// Captioner produces a short textual description of a frame. The vision
// agent provides this; the embedding matcher only needs the text.
type Captioner interface {
	Caption(ctx context.Context, img *preprocess.Prepared) (string, error)
}

// EmbeddingEngine matches a frame caption against a pgvector index of known
// titles. It catches frames with no readable text at all: the caption
// ("a spinning top on a table...") lands near the right title in embedding
// space even when OCR and the vision model's direct guess come up empty.
type EmbeddingEngine struct {
	captioner Captioner
	client    *openai.Client
	model     openai.EmbeddingModel
	pool      *pgxpool.Pool
	floor     float64
	limit     int
}

// EmbeddingConfig holds the matcher settings.
type EmbeddingConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Floor   float64
}

// NewEmbeddingEngine wires the caption embedder to the title index.
func NewEmbeddingEngine(captioner Captioner, pool *pgxpool.Pool, cfg EmbeddingConfig) *EmbeddingEngine {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &EmbeddingEngine{
		captioner: captioner,
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.Model),
		pool:      pool,
		floor:     cfg.Floor,
		limit:     5,
	}
}

func (e *EmbeddingEngine) Name() string { return SourceEmbedding }

// Recognize implements Engine.
func (e *EmbeddingEngine) Recognize(ctx context.Context, img *preprocess.Prepared) ([]Candidate, error) {
	caption, err := e.captioner.Caption(ctx, img)
	if err != nil {
		return nil, apperrors.NewEngineUnavailableError("frame captioning failed", err)
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return nil, nil
	}

	embedding, err := e.embed(ctx, caption)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewEngineTimeoutError("embedding request timed out", err)
		}
		return nil, apperrors.NewEngineUnavailableError("embedding request failed", err)
	}

	return e.nearestTitles(ctx, embedding)
}

func (e *EmbeddingEngine) embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// nearestTitles runs a cosine-distance search over the title index and keeps
// matches above the similarity floor.
func (e *EmbeddingEngine) nearestTitles(ctx context.Context, embedding []float32) ([]Candidate, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT title, 1 - (embedding <=> $1) AS similarity
        FROM title_embeddings
        ORDER BY embedding <=> $1
        LIMIT $2`,
		pgvector.NewVector(embedding), e.limit)
	if err != nil {
		return nil, apperrors.NewEngineUnavailableError("title index query failed", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var title string
		var similarity float64
		if err := rows.Scan(&title, &similarity); err != nil {
			return nil, apperrors.NewEngineUnavailableError("title index scan failed", err)
		}
		if similarity < e.floor {
			continue
		}
		candidates = append(candidates, Candidate{
			Text:       title,
			Source:     SourceEmbedding,
			Confidence: similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewEngineUnavailableError("title index iteration failed", err)
	}

	logger.WithField("matches", len(candidates)).Debug("embedding matcher finished")
	return candidates, nil
}

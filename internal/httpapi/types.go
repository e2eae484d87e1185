// Package httpapi exposes the search pipeline over a thin net/http
// endpoint (spec §6). It deliberately avoids a router framework: one
// handler, one route, dispatched on method.
package httpapi

import (
	"context"

	"github.com/equipsearch/catalogsearch/internal/catalog"
)

// Request is the decoded, still-unvalidated search request body.
type Request struct {
	Query    string   `json:"query"`
	TopK     *int     `json:"top_k,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
}

// Options is a validated, defaulted version of Request, as handed to a
// Searcher.
type Options struct {
	TopK     int
	MinScore float64
}

// Resultado is one ranked document in a Response, shaped for the spec §6
// wire contract.
type Resultado struct {
	Grupo           string             `json:"grupo"`
	Descricao       string             `json:"descricao"`
	Score           float64            `json:"score"`
	ScoreNormalized float64            `json:"score_normalized"`
	ScoreBreakdown  map[string]float64 `json:"score_breakdown,omitempty"`
	RankScoreFinal  float64            `json:"rankScoreFinal"`
	ConfidenceItem  float64            `json:"confidenceItem"`
	Metrics         catalog.Metrics    `json:"metrics"`
	Sources         catalog.Sources    `json:"sources"`
	Marca           string             `json:"marca,omitempty"`
	LinkDetalhes    string             `json:"link_detalhes"`
}

// Confianca is the response's overall confidence summary, derived from the
// top-1 result's confidenceItem.
type Confianca struct {
	Score float64 `json:"score"`
	Nivel string  `json:"nivel"`
}

// Nivel thresholds (spec §6): alta >= 0.80, media >= 0.60, else baixa.
const (
	NivelAlta  = "alta"
	NivelMedia = "media"
	NivelBaixa = "baixa"
)

// NivelFor classifies a top-1 confidence score into its spec §6 bucket.
func NivelFor(score float64) string {
	switch {
	case score >= 0.80:
		return NivelAlta
	case score >= 0.60:
		return NivelMedia
	default:
		return NivelBaixa
	}
}

// Metadata carries response provenance and degradation reporting (spec §6, §7).
type Metadata struct {
	Engine         string   `json:"engine"`
	Version        string   `json:"version"`
	LatencyMS      float64  `json:"latency_ms"`
	CacheHit       bool     `json:"cache_hit"`
	Features       []string `json:"features"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
	RequestID      string   `json:"request_id"`
}

// Response is the full search endpoint response body.
type Response struct {
	QueryOriginal  string      `json:"query_original"`
	QueryCorrected string      `json:"query_corrected,omitempty"`
	Resultados     []Resultado `json:"resultados"`
	Total          int         `json:"total"`
	Confianca      Confianca   `json:"confianca"`
	Metadata       Metadata    `json:"metadata"`
}

// Searcher is the narrow collaborator the handler depends on. A concrete
// orchestrator (Service) implements it by composing the engine, reranker,
// diversifier, and confidence stages.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) (Response, error)
}

package httpapi

import (
	"context"
	"sort"
	"time"

	"github.com/equipsearch/catalogsearch/internal/catalog"
	"github.com/equipsearch/catalogsearch/internal/config"
	"github.com/equipsearch/catalogsearch/internal/confidence"
	"github.com/equipsearch/catalogsearch/internal/diversifier"
	"github.com/equipsearch/catalogsearch/internal/engine"
	searcherrors "github.com/equipsearch/catalogsearch/internal/errors"
	"github.com/equipsearch/catalogsearch/internal/normalizer"
	"github.com/equipsearch/catalogsearch/internal/reranker"
)

// EngineVersion is the wire-visible engine identifier (spec §6 metadata.engine).
const EngineVersion = "equipsearch"

// Version is the search pipeline's own version tag, independent of the
// module's release version.
const Version = "1.0.0"

// Service composes the integrated engine with the reranker, diversifier,
// and confidence stages into the orchestration the spec's Search endpoint
// (§6) requires. Each stage stays a separate package; Service is the only
// place that wires them together.
type Service struct {
	engine         *engine.Engine
	rerankerCfg    reranker.Config
	diversifierCfg diversifier.Config
	confidenceCfg  confidence.Config
	maxTopK        int
	linkPrefix     string
}

// NewService builds a Service over an already-initialized engine and the
// tuning configs for its downstream stages. eng may be nil, in which case
// Search returns NotReady.
func NewService(eng *engine.Engine, cfg *config.Config) *Service {
	maxTopK := 30
	linkPrefix := "/equipamentos/"
	var rerankerCfg reranker.Config
	var diversifierCfg diversifier.Config
	var confidenceCfg confidence.Config
	if cfg != nil {
		if cfg.Server.MaxTopK > 0 {
			maxTopK = cfg.Server.MaxTopK
		}
		rerankerCfg = reranker.Config{
			Enabled:               cfg.Reranker.Enabled,
			BM25Weight:            cfg.Reranker.BM25Weight,
			ModelBoost:            cfg.Reranker.ModelBoost,
			CategoryBoost:         cfg.Reranker.CategoryBoost,
			AccessoryPenalty:      cfg.Reranker.AccessoryPenalty,
			MissingModelPenalty:   cfg.Reranker.MissingModelPenalty,
			HardTop1Equipment:     cfg.Reranker.HardTop1Equipment,
			AccessoryBonusEnabled: cfg.Reranker.AccessoryBonusEnabled,
		}
		diversifierCfg = diversifier.Config{
			Enabled:          cfg.Diversifier.Enabled,
			MaxPerSubtype:    cfg.Diversifier.MaxPerSubtype,
			MaxCandidateMult: cfg.Diversifier.MaxCandidateMult,
			MinCategoryFloor: cfg.Diversifier.MinCategoryFloor,
		}
		confidenceCfg = confidence.Config{
			Temperature:              cfg.Confidence.Temperature,
			UseSpecificity:           cfg.Confidence.UseSpecificity,
			MixedQueryPenaltyEnabled: cfg.Confidence.MixedQueryPenaltyEnabled,
		}
	} else {
		rerankerCfg = reranker.DefaultConfig()
		diversifierCfg = diversifier.DefaultConfig()
		confidenceCfg = confidence.DefaultConfig()
	}

	return &Service{
		engine:         eng,
		rerankerCfg:    rerankerCfg,
		diversifierCfg: diversifierCfg,
		confidenceCfg:  confidenceCfg,
		maxTopK:        maxTopK,
		linkPrefix:     linkPrefix,
	}
}

// MaxTopK exposes the server-side top_k clamp so the handler can validate
// requests against it.
func (s *Service) MaxTopK() int {
	return s.maxTopK
}

// resultItem carries every field needed downstream of the reranker, through
// diversification and confidence scoring, keyed by document ID.
type resultItem struct {
	doc            catalog.Document
	classification reranker.DocClassification
	bm25Raw        float64
	finalScore     float64
}

// Search runs the full pipeline: core-query retrieval, rerank, optional
// navigation diversification, confidence scoring, and response assembly.
func (s *Service) Search(ctx context.Context, query string, opts Options) (Response, error) {
	start := time.Now()

	if s.engine == nil {
		return Response{}, searcherrors.NotReady()
	}
	if err := ctx.Err(); err != nil {
		return Response{}, searcherrors.Wrap(searcherrors.ErrCodeInternal, err)
	}

	parsed := reranker.ParseQuery(query)
	coreQuery := reranker.BuildCoreQuery(query, parsed)
	qNorm := normalizer.NormalizeEquip(query)

	isNav := s.diversifierCfg.Enabled && diversifier.IsNavigationIntent(qNorm, parsed)

	fetchK := opts.TopK
	if isNav {
		fetchK = clampInt(opts.TopK*s.diversifierCfg.MaxCandidateMult, 60, 220)
	}

	engResult := s.engine.Search(coreQuery, fetchK)

	items := make([]resultItem, 0, len(engResult.Candidates))
	for _, c := range engResult.Candidates {
		doc, ok := s.engine.Doc(c.DocID)
		if !ok {
			continue
		}
		items = append(items, resultItem{doc: doc, bm25Raw: c.Score})
	}

	ranked := s.rerank(query, parsed, items)

	final := ranked
	if isNav {
		final = s.diversify(ranked, parsed.MainCategory, opts.TopK)
	} else if len(final) > opts.TopK {
		final = final[:opts.TopK]
	}

	scored := make([]confidence.Scored, len(final))
	for i, it := range final {
		scored[i] = confidence.Scored{DocID: it.doc.ID, RankScoreFinal: it.finalScore}
	}
	confItems := confidence.Score(scored, parsed, query, s.confidenceCfg)
	confByDoc := make(map[string]float64, len(confItems))
	for _, ci := range confItems {
		confByDoc[ci.DocID] = ci.Confidence
	}

	maxRaw := 0.0
	for _, it := range final {
		if it.bm25Raw > maxRaw {
			maxRaw = it.bm25Raw
		}
	}

	resultados := make([]Resultado, 0, len(final))
	for _, it := range final {
		normalized := 0.0
		if maxRaw > 0 {
			normalized = it.bm25Raw / maxRaw
		}
		if normalized < opts.MinScore {
			continue
		}
		resultados = append(resultados, Resultado{
			Grupo:           it.doc.ID,
			Descricao:       it.doc.Title,
			Score:           it.bm25Raw,
			ScoreNormalized: normalized,
			ScoreBreakdown: map[string]float64{
				"bm25_raw":        it.bm25Raw,
				"bm25_normalized": normalized,
				"final":           it.finalScore,
			},
			RankScoreFinal: it.finalScore,
			ConfidenceItem: confByDoc[it.doc.ID],
			Metrics:        it.doc.Metrics,
			Sources:        it.doc.Sources,
			Marca:          firstOrEmpty(it.doc.Sources.Marcas),
			LinkDetalhes:   s.linkPrefix + it.doc.ID,
		})
	}

	top1 := 0.0
	if len(resultados) > 0 {
		top1 = resultados[0].ConfidenceItem
	}

	var queryCorrected string
	if engResult.Debug.FuzzyApplied {
		queryCorrected = engResult.Debug.CorrectedQuery
	}

	features := []string{"lexical_search"}
	if s.rerankerCfg.Enabled {
		features = append(features, "reranker")
	}
	if isNav {
		features = append(features, "diversifier")
	}
	features = append(features, "confidence")

	return Response{
		QueryOriginal:  query,
		QueryCorrected: queryCorrected,
		Resultados:     resultados,
		Total:          len(resultados),
		Confianca: Confianca{
			Score: top1,
			Nivel: NivelFor(top1),
		},
		Metadata: Metadata{
			Engine:    EngineVersion,
			Version:   Version,
			LatencyMS: float64(time.Since(start).Microseconds()) / 1000.0,
			CacheHit:  engResult.Debug.CacheHit,
			Features:  features,
			RequestID: requestIDFromContext(ctx),
		},
	}, nil
}

func (s *Service) rerank(query string, parsed reranker.ParsedQuery, items []resultItem) []resultItem {
	if !s.rerankerCfg.Enabled {
		out := make([]resultItem, len(items))
		for i, it := range items {
			it.classification = reranker.ClassifyDoc(it.doc, parsed.ModelNumbers)
			it.finalScore = it.bm25Raw
			out[i] = it
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].bm25Raw > out[j].bm25Raw })
		return out
	}

	candidates := make([]reranker.Candidate, len(items))
	for i, it := range items {
		candidates[i] = reranker.Candidate{Doc: it.doc, BM25Raw: it.bm25Raw}
	}
	ranked, _ := reranker.Rerank(query, candidates, s.rerankerCfg)

	out := make([]resultItem, len(ranked))
	for i, r := range ranked {
		out[i] = resultItem{
			doc:            r.Doc,
			classification: r.Classification,
			bm25Raw:        r.BM25Raw,
			finalScore:     r.FinalScore,
		}
	}
	return out
}

func (s *Service) diversify(items []resultItem, detectedCategory catalog.DocCategory, topK int) []resultItem {
	byDoc := make(map[string]resultItem, len(items))
	divItems := make([]diversifier.Item, len(items))
	for i, it := range items {
		byDoc[it.doc.ID] = it
		cat := it.classification.Category
		if cat == "" {
			cat = it.doc.DocCategory
		}
		divItems[i] = diversifier.Item{Doc: it.doc, Category: cat}
	}

	selected := diversifier.Diversify(divItems, detectedCategory, topK, s.diversifierCfg)

	out := make([]resultItem, 0, len(selected))
	for _, sel := range selected {
		if it, ok := byDoc[sel.Doc.ID]; ok {
			out = append(out, it)
		}
	}
	return out
}

func firstOrEmpty(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

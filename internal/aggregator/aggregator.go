// Package aggregator collapses many supplier quote rows into one indexed
// Document per canonical equipment, with aggregated pricing and lifetime
// statistics (spec §4.9).
package aggregator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/equipsearch/catalogsearch/internal/catalog"
	"github.com/equipsearch/catalogsearch/internal/normalizer"
	"github.com/equipsearch/catalogsearch/internal/reranker"
)

// Config tunes the aggregation pass.
type Config struct {
	// Concurrency bounds how many equipment groups are summarized in
	// parallel. 0 or negative defaults to 8.
	Concurrency int
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{Concurrency: 8}
}

// Result is the outcome of an aggregation pass.
type Result struct {
	Documents []catalog.Document
	Warnings  []string
}

// Aggregate groups rows by equipmentId, computes per-group statistics, and
// emits one Document per group (spec §4.9 steps 1-8). Row summarization
// runs concurrently across groups, bounded by cfg.Concurrency.
func Aggregate(ctx context.Context, rows []RawRow, cfg Config) (Result, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	groups := make(map[string][]catalog.SourceRow)
	var order []string
	for _, raw := range rows {
		sourceRow, equipmentID, ok := toSourceRow(raw)
		if !ok {
			continue
		}
		if _, seen := groups[equipmentID]; !seen {
			order = append(order, equipmentID)
		}
		groups[equipmentID] = append(groups[equipmentID], sourceRow)
	}
	sort.Strings(order)

	docs := make([]catalog.Document, len(order))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

	for i, equipmentID := range order {
		i, equipmentID := i, equipmentID
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			docs[i] = buildDocument(equipmentID, i+1, groups[equipmentID])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("aggregator: %w", err)
	}

	return Result{Documents: docs, Warnings: validate(docs)}, nil
}

// toSourceRow parses a RawRow's Brazilian-decimal fields and computes its
// equipmentId. ok is false when the row has no standardized description and
// must be skipped (spec §4.9 step 2).
func toSourceRow(raw RawRow) (row catalog.SourceRow, equipmentID string, ok bool) {
	equipmentID = normalizer.NormalizeText(raw.DescricaoPadronizada)
	if equipmentID == "" {
		return catalog.SourceRow{}, "", false
	}

	valor, _ := ParseBRDecimal(raw.ValorUnitario)
	vida, _ := ParseBRDecimal(raw.VidaUtilMeses)
	manut, _ := ParseBRDecimal(raw.ManutencaoPercent)

	return catalog.SourceRow{
		Fornecedor:           raw.Fornecedor,
		Marca:                raw.Marca,
		DescricaoOriginal:    raw.DescricaoOriginal,
		DescricaoSanitizada:  raw.DescricaoSanitizada,
		DescricaoPadronizada: raw.DescricaoPadronizada,
		ValorUnitario:        valor,
		VidaUtilMeses:        vida,
		ManutencaoPercent:    manut,
		Bid:                  raw.Bid,
	}, equipmentID, true
}

// buildDocument summarizes one equipmentId's rows into a Document (spec
// §4.9 steps 4-8). seq is the 1-based sequence number used for the ID.
func buildDocument(equipmentID string, seq int, rows []catalog.SourceRow) catalog.Document {
	title := rows[0].DescricaoPadronizada

	valores := make([]float64, 0, len(rows))
	vidas := make([]float64, 0, len(rows))
	manutencoes := make([]float64, 0, len(rows))

	var fornecedores, marcas, bids []string
	seenFornecedor, seenMarca, seenBid := map[string]bool{}, map[string]bool{}, map[string]bool{}

	for _, r := range rows {
		if r.ValorUnitario > 0 {
			valores = append(valores, r.ValorUnitario)
		}
		if r.VidaUtilMeses > 0 {
			vidas = append(vidas, r.VidaUtilMeses)
		}
		if r.ManutencaoPercent > 0 {
			frac := r.ManutencaoPercent
			if frac > 1 {
				frac = frac / 100
			}
			manutencoes = append(manutencoes, frac)
		}
		if r.Fornecedor != "" && !seenFornecedor[r.Fornecedor] {
			seenFornecedor[r.Fornecedor] = true
			fornecedores = append(fornecedores, r.Fornecedor)
		}
		if r.Marca != "" && !seenMarca[r.Marca] {
			seenMarca[r.Marca] = true
			marcas = append(marcas, r.Marca)
		}
		if r.Bid != "" && !seenBid[r.Bid] {
			seenBid[r.Bid] = true
			bids = append(bids, r.Bid)
		}
	}

	metrics := catalog.Metrics{
		ValorUnitario: summarize(valores, ""),
		VidaUtilMeses: summarize(vidas, ""),
		Manutencao:    summarize(manutencoes, catalog.UnitFraction),
	}

	rawText := title
	text := normalizer.NormalizeEquip(rawText)
	semanticText := fmt.Sprintf("%s | Fornecedor: %s | Marca: %s | Fonte: %s",
		title, joinOr(fornecedores, "-"), joinOr(marcas, "-"), joinOr(bids, "-"))

	doc := catalog.Document{
		ID:           fmt.Sprintf("DOC_%05d", seq),
		EquipmentID:  equipmentID,
		Title:        title,
		Text:         text,
		RawText:      rawText,
		SemanticText: semanticText,
		Metrics:      metrics,
		Sources: catalog.Sources{
			Fornecedores: fornecedores,
			Bids:         bids,
			Marcas:       marcas,
			NLinhas:      len(rows),
		},
	}

	doc.DocCategory = reranker.ParseQuery(title).MainCategory
	if doc.DocCategory == "" {
		doc.DocCategory = catalog.CategoryUnknown
	}
	doc.DocType = reranker.ClassifyDoc(doc, nil).DocType

	return doc
}

// summarize computes mean/median/min/max/n over positive values. display
// equals median per spec §4.9 step 5.
func summarize(values []float64, unit catalog.MetricUnit) catalog.NumericMetrics {
	if len(values) == 0 {
		return catalog.NumericMetrics{Unit: unit}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return catalog.NumericMetrics{
		Display: median,
		Mean:    mean,
		Median:  median,
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		N:       len(sorted),
		Unit:    unit,
	}
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	out := values[0]
	for _, v := range values[1:] {
		out += ", " + v
	}
	return out
}

// validate runs the post-aggregation sanity checks (spec §4.9, "Validation
// pass"): duplicate equipmentIds, and per-metric coverage percentages.
func validate(docs []catalog.Document) []string {
	var warnings []string

	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.EquipmentID] {
			warnings = append(warnings, fmt.Sprintf("duplicate equipmentId after aggregation: %s", d.EquipmentID))
		}
		seen[d.EquipmentID] = true
	}

	if len(docs) == 0 {
		return warnings
	}

	covered := func(get func(catalog.Document) int) float64 {
		n := 0
		for _, d := range docs {
			if get(d) > 0 {
				n++
			}
		}
		return math.Round(float64(n) / float64(len(docs)) * 1000) / 10
	}

	warnings = append(warnings,
		fmt.Sprintf("valorUnitario coverage: %.1f%%", covered(func(d catalog.Document) int { return d.Metrics.ValorUnitario.N })),
		fmt.Sprintf("vidaUtilMeses coverage: %.1f%%", covered(func(d catalog.Document) int { return d.Metrics.VidaUtilMeses.N })),
		fmt.Sprintf("manutencao coverage: %.1f%%", covered(func(d catalog.Document) int { return d.Metrics.Manutencao.N })),
	)

	return warnings
}

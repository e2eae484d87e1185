package aggregator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RawRow is one supplier quote as read from the source dataset, before any
// numeric parsing. Every numeric field is still a Brazilian-format decimal
// string (comma as decimal separator).
type RawRow struct {
	Fornecedor           string
	Marca                string
	DescricaoOriginal    string
	DescricaoSanitizada  string
	DescricaoPadronizada string
	ValorUnitario        string
	VidaUtilMeses        string
	ManutencaoPercent    string
	Bid                  string
}

// rawRowColumns is the fixed column order expected in the source CSV.
var rawRowColumns = []string{
	"fornecedor", "marca", "descricao_original", "descricao_sanitizada",
	"descricao_padronizada", "valor_unitario", "vida_util_meses",
	"manutencao_percent", "bid",
}

// LoadRawRowsCSV reads rows from r, a header-first CSV matching
// rawRowColumns (in any column order). No ecosystem CSV library appears in
// the reference corpus, so this reads with encoding/csv directly.
func LoadRawRowsCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("aggregator: reading header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, want := range rawRowColumns {
		if _, ok := colIdx[want]; !ok {
			return nil, fmt.Errorf("aggregator: missing required column %q", want)
		}
	}

	var rows []RawRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("aggregator: reading row: %w", err)
		}
		rows = append(rows, RawRow{
			Fornecedor:           record[colIdx["fornecedor"]],
			Marca:                record[colIdx["marca"]],
			DescricaoOriginal:    record[colIdx["descricao_original"]],
			DescricaoSanitizada:  record[colIdx["descricao_sanitizada"]],
			DescricaoPadronizada: record[colIdx["descricao_padronizada"]],
			ValorUnitario:        record[colIdx["valor_unitario"]],
			VidaUtilMeses:        record[colIdx["vida_util_meses"]],
			ManutencaoPercent:    record[colIdx["manutencao_percent"]],
			Bid:                  record[colIdx["bid"]],
		})
	}
	return rows, nil
}

// ParseBRDecimal parses a Brazilian-format decimal string (comma as the
// decimal separator, optional "." thousands separators) into a float64.
// An empty string parses to 0 with ok=false so callers can distinguish a
// missing value from a genuine zero.
func ParseBRDecimal(s string) (value float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

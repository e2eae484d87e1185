package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	searcherrors "github.com/equipsearch/catalogsearch/internal/errors"
)

type stubSearcher struct {
	resp Response
	err  error
}

func (s stubSearcher) Search(ctx context.Context, query string, opts Options) (Response, error) {
	return s.resp, s.err
}

func post(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/search", &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_EmptyQuery_Returns400(t *testing.T) {
	h := NewHandler(stubSearcher{}, 30)
	rec := post(t, h, Request{Query: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, searcherrors.ErrCodeEmptyQuery, body.Error.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestServeHTTP_TopKOutOfRange_Returns400(t *testing.T) {
	h := NewHandler(stubSearcher{}, 30)
	topK := 0
	rec := post(t, h, Request{Query: "vassoura", TopK: &topK})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, searcherrors.ErrCodeInvalidTopK, body.Error.Code)
}

func TestServeHTTP_TopKAboveMax_Returns400(t *testing.T) {
	h := NewHandler(stubSearcher{}, 30)
	topK := 31
	rec := post(t, h, Request{Query: "vassoura", TopK: &topK})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTP_MinScoreOutOfRange_Returns400(t *testing.T) {
	h := NewHandler(stubSearcher{}, 30)
	minScore := 1.5
	rec := post(t, h, Request{Query: "vassoura", MinScore: &minScore})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, searcherrors.ErrCodeInvalidMinScore, body.Error.Code)
}

func TestServeHTTP_MalformedBody_Returns400(t *testing.T) {
	h := NewHandler(stubSearcher{}, 30)
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTP_EngineNotReady_Returns503(t *testing.T) {
	h := NewHandler(stubSearcher{err: searcherrors.NotReady()}, 30)
	rec := post(t, h, Request{Query: "vassoura"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeHTTP_Success_Returns200WithHeaders(t *testing.T) {
	resp := Response{
		QueryOriginal: "vassoura",
		Resultados:    []Resultado{{Grupo: "d1", Descricao: "vassoura de nylon", ConfidenceItem: 0.9}},
		Total:         1,
		Confianca:     Confianca{Score: 0.9, Nivel: NivelAlta},
		Metadata:      Metadata{Engine: EngineVersion, Version: Version, CacheHit: true},
	}
	h := NewHandler(stubSearcher{resp: resp}, 30)
	rec := post(t, h, Request{Query: "vassoura"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Cache-Hit"))
	assert.NotEmpty(t, rec.Header().Get("X-Engine-Version"))

	var decoded Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "vassoura", decoded.QueryOriginal)
	assert.Len(t, decoded.Resultados, 1)
}

func TestServeHTTP_MethodNotAllowed_Returns405(t *testing.T) {
	h := NewHandler(stubSearcher{}, 30)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNivelFor_Thresholds(t *testing.T) {
	assert.Equal(t, NivelAlta, NivelFor(0.80))
	assert.Equal(t, NivelAlta, NivelFor(0.95))
	assert.Equal(t, NivelMedia, NivelFor(0.60))
	assert.Equal(t, NivelMedia, NivelFor(0.79))
	assert.Equal(t, NivelBaixa, NivelFor(0.59))
	assert.Equal(t, NivelBaixa, NivelFor(0))
}

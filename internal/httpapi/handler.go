package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	searcherrors "github.com/equipsearch/catalogsearch/internal/errors"
)

const (
	defaultTopK     = 10
	minTopK         = 1
	defaultMinScore = 0.0
)

// requestIDKey is the context key a Handler stamps its generated request ID
// under, so a Searcher implementation can echo it back in response metadata
// without threading it through every call signature.
type requestIDKey struct{}

// Handler serves the search endpoint described in spec §6 over plain
// net/http: one route, one method, no router framework.
type Handler struct {
	searcher Searcher
	maxTopK  int
}

// NewHandler builds a Handler over searcher. maxTopK is the server-side
// clamp on the request's top_k (spec §6 MAX_TOP_K); values <= 0 fall back
// to 30.
func NewHandler(searcher Searcher, maxTopK int) *Handler {
	if maxTopK <= 0 {
		maxTopK = 30
	}
	return &Handler{searcher: searcher, maxTopK: maxTopK}
}

// ServeHTTP implements http.Handler. It accepts POST with a JSON body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "ERR_405_METHOD_NOT_ALLOWED", "POST required", requestID)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, searcherrors.ErrCodeInvalidBody, "malformed request body", requestID)
		return
	}

	opts, code, msg := validate(req, h.maxTopK)
	if code != "" {
		writeError(w, http.StatusBadRequest, code, msg, requestID)
		return
	}

	resp, err := h.searcher.Search(ctx, req.Query, opts)
	if err != nil {
		status, errCode, errMsg := classifyError(err)
		writeError(w, status, errCode, errMsg, requestID)
		return
	}

	w.Header().Set("X-Engine-Version", EngineVersion+"/"+Version)
	if resp.Metadata.CacheHit {
		w.Header().Set("X-Cache-Hit", "true")
	} else {
		w.Header().Set("X-Cache-Hit", "false")
	}
	writeJSON(w, http.StatusOK, resp)
}

// validate defaults and range-checks a decoded Request, returning the
// derived Options or a validation error code and message.
func validate(req Request, maxTopK int) (Options, string, string) {
	if req.Query == "" {
		return Options{}, searcherrors.ErrCodeEmptyQuery, "query must not be empty"
	}

	topK := defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < minTopK || topK > maxTopK {
		return Options{}, searcherrors.ErrCodeInvalidTopK, "top_k must be between 1 and " + strconv.Itoa(maxTopK)
	}

	minScore := defaultMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	if minScore < 0 || minScore > 1 {
		return Options{}, searcherrors.ErrCodeInvalidMinScore, "min_score must be between 0 and 1"
	}

	return Options{TopK: topK, MinScore: minScore}, "", ""
}

// classifyError maps a Searcher error to an HTTP status and wire error code.
func classifyError(err error) (int, string, string) {
	var se *searcherrors.SearchError
	if errors.As(err, &se) {
		return se.Category.StatusCode(), se.Code, se.Message
	}
	return http.StatusInternalServerError, searcherrors.ErrCodeInternal, "internal error"
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	body := errorBody{RequestID: requestID}
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}


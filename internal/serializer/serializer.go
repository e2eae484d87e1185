// Package serializer persists and restores a built BM25Index + FuzzyMatcher
// pair so a process restart can skip rebuilding them from the corpus
// (spec §4.10).
package serializer

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/equipsearch/catalogsearch/internal/bm25"
	searcherrors "github.com/equipsearch/catalogsearch/internal/errors"
	"github.com/equipsearch/catalogsearch/internal/fuzzy"
)

// FormatVersion is bumped whenever the persisted payload shape changes.
// Backwards compatibility of older versions is not required; a mismatch
// triggers a rebuild.
const FormatVersion = 1

// payload is the neutral, directly-(de)serializable representation of the
// two structures. Both bm25.Index and fuzzy.Matcher carry unexported
// internal state, so the payload stores what Build needs to reconstruct
// them rather than their private fields.
type payload struct {
	BM25Docs   []bm25.InputDoc `json:"bm25Docs"`
	BM25Config bm25.Config     `json:"bm25Config"`
	Vocabulary []string        `json:"vocabulary"`
	FuzzyConfig fuzzy.Config   `json:"fuzzyConfig"`
	DocCount   int             `json:"docCount"`
}

// envelope is the on-disk file shape.
type envelope struct {
	Version   int    `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Checksum  string `json:"checksum"`
	Data      []byte `json:"data"`
}

// Bundle is the pair of structures the search engine needs at query time.
type Bundle struct {
	Index   *bm25.Index
	Matcher *fuzzy.Matcher
}

// Save serializes idx and matcher to path, guarded by a cross-process file
// lock so concurrent build processes don't corrupt each other's writes.
// timestamp is injected by the caller (the package avoids time.Now so
// callers remain in control of wall-clock dependencies).
func Save(path string, idx *bm25.Index, matcher *fuzzy.Matcher, bm25Docs []bm25.InputDoc, bm25Cfg bm25.Config, fuzzyCfg fuzzy.Config, timestamp int64) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("serializer: acquiring lock: %w", err)
	}
	defer lock.Unlock()

	p := payload{
		BM25Docs:    bm25Docs,
		BM25Config:  bm25Cfg,
		Vocabulary:  matcher.Vocabulary(),
		FuzzyConfig: fuzzyCfg,
		DocCount:    idx.Len(),
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("serializer: marshaling payload: %w", err)
	}

	sum := sha256.Sum256(data)
	env := envelope{
		Version:   FormatVersion,
		Timestamp: timestamp,
		Checksum:  fmt.Sprintf("%x", sum),
		Data:      data,
	}

	out, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("serializer: marshaling envelope: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("serializer: creating directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("serializer: writing file: %w", err)
	}
	return nil
}

// LoadResult reports why a Load did not return usable structures, for the
// caller to log before falling back to a rebuild.
type LoadResult struct {
	Bundle Bundle
	OK     bool
	Reason string
}

// Load reads and verifies path, reconstructing the BM25Index and
// FuzzyMatcher on success. Any failure (file absent, malformed envelope,
// version mismatch, checksum mismatch, or a live corpus document count
// that no longer matches) is fail-soft: OK is false and Reason explains
// why, and the caller is expected to rebuild from source.
func Load(path string, liveDocCount int) LoadResult {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err == nil {
		defer lock.Unlock()
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return LoadResult{Reason: "index file not found"}
	}
	if err != nil {
		return LoadResult{Reason: fmt.Sprintf("reading index file: %v", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return LoadResult{Reason: fmt.Sprintf("malformed envelope: %v", err)}
	}
	if env.Version != FormatVersion {
		return LoadResult{Reason: fmt.Sprintf("version mismatch: file=%d expected=%d", env.Version, FormatVersion)}
	}

	sum := sha256.Sum256(env.Data)
	if fmt.Sprintf("%x", sum) != env.Checksum {
		return LoadResult{Reason: "checksum mismatch"}
	}

	var p payload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return LoadResult{Reason: fmt.Sprintf("malformed payload: %v", err)}
	}

	if p.DocCount != liveDocCount {
		return LoadResult{Reason: fmt.Sprintf("corpus document count changed: persisted=%d live=%d", p.DocCount, liveDocCount)}
	}

	idx, err := bm25.Build(p.BM25Docs, p.BM25Config)
	if err != nil {
		return LoadResult{Reason: fmt.Sprintf("rebuilding bm25 index from payload: %v", err)}
	}
	matcher := fuzzy.Build(p.Vocabulary, fuzzy.WithConfig(p.FuzzyConfig))

	return LoadResult{Bundle: Bundle{Index: idx, Matcher: matcher}, OK: true}
}

// ErrNotFound is a SearchError for the absent-file case. Load does not
// return it; Load reports that case through LoadResult.Reason.
var ErrNotFound = searcherrors.New(searcherrors.ErrCodeCorpusMissing, "persisted index not found", nil)

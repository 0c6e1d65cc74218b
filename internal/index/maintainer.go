// Package index maintains the three persisted retrieval indexes (word,
// trigram, vector) for memory records. Index rows for a record are
// always replaced wholesale so a content update can never leave stale
// fragments of the previous version behind.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/substratelabs/memcore/internal/store"
	"github.com/substratelabs/memcore/internal/textutil"
)

// Maintainer builds, rebuilds, and removes per-record index state.
type Maintainer struct {
	store  store.Store
	logger *slog.Logger
}

// NewMaintainer creates an index maintainer over the given store.
func NewMaintainer(s store.Store) *Maintainer {
	return &Maintainer{
		store:  s,
		logger: slog.Default(),
	}
}

// BuildIndexes replaces all derived index rows for one record: word
// entries from tokenized content and flattened metadata values, trigram
// entries for every indexed word, and the TF-IDF vector computed against
// document frequencies as the word index stands right now. Earlier
// records' vectors are not recomputed when this one lands, so IDF
// weights drift until the next RebuildAll.
func (m *Maintainer) BuildIndexes(ctx context.Context, recordID, content string, metadata map[string]any) error {
	contentTokens := textutil.Tokenize(content)
	metadataTokens := textutil.Tokenize(FlattenMetadata(metadata))

	// Replace, never merge
	if err := m.store.DeleteByRecordID(ctx, recordID); err != nil {
		return fmt.Errorf("failed to clear index rows for %s: %w", recordID, err)
	}

	if err := m.insertWordEntries(ctx, recordID, contentTokens, metadataTokens); err != nil {
		return err
	}
	if err := m.insertTrigramEntries(ctx, recordID, contentTokens, metadataTokens); err != nil {
		return err
	}
	return m.upsertVector(ctx, recordID, append(contentTokens, metadataTokens...))
}

// RemoveIndexes deletes all three index structures for a record.
func (m *Maintainer) RemoveIndexes(ctx context.Context, recordID string) error {
	if err := m.store.DeleteByRecordID(ctx, recordID); err != nil {
		return fmt.Errorf("failed to remove indexes for %s: %w", recordID, err)
	}
	return nil
}

// RebuildAll clears every index row and rebuilds from every stored
// record in creation order. Idempotent: repeated invocations over the
// same records produce identical index contents.
func (m *Maintainer) RebuildAll(ctx context.Context) (int, error) {
	if err := m.store.ClearAll(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear indexes: %w", err)
	}

	records, err := m.store.ListRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	rebuilt := 0
	for _, rec := range records {
		if err := m.BuildIndexes(ctx, rec.ID, rec.Content, rec.Metadata); err != nil {
			// One bad record should not abort the remaining rebuild.
			m.logger.Warn("index rebuild failed for record",
				slog.String("record_id", rec.ID),
				slog.String("error", err.Error()))
			continue
		}
		rebuilt++
	}

	m.logger.Info("index rebuild complete",
		slog.Int("records", len(records)),
		slog.Int("rebuilt", rebuilt))
	return rebuilt, nil
}

func (m *Maintainer) insertWordEntries(ctx context.Context, recordID string, contentTokens, metadataTokens []string) error {
	var entries []store.WordEntry
	for field, tokens := range map[store.FieldType][]string{
		store.FieldContent:  contentTokens,
		store.FieldMetadata: metadataTokens,
	} {
		for word, freq := range textutil.TermFrequencies(tokens) {
			entries = append(entries, store.WordEntry{
				Word:      word,
				RecordID:  recordID,
				Frequency: freq,
				FieldType: field,
			})
		}
	}

	// Deterministic insert order keeps RebuildAll reproducible.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Word != entries[j].Word {
			return entries[i].Word < entries[j].Word
		}
		return entries[i].FieldType < entries[j].FieldType
	})

	if err := m.store.InsertWordEntries(ctx, entries); err != nil {
		return fmt.Errorf("failed to insert word entries for %s: %w", recordID, err)
	}
	return nil
}

func (m *Maintainer) insertTrigramEntries(ctx context.Context, recordID string, contentTokens, metadataTokens []string) error {
	seen := make(map[string]struct{})
	var words []string
	for _, tok := range contentTokens {
		if _, ok := seen[tok]; !ok {
			seen[tok] = struct{}{}
			words = append(words, tok)
		}
	}
	for _, tok := range metadataTokens {
		if _, ok := seen[tok]; !ok {
			seen[tok] = struct{}{}
			words = append(words, tok)
		}
	}
	sort.Strings(words)

	var entries []store.TrigramEntry
	for _, word := range words {
		for pos, gram := range textutil.Trigrams(word) {
			entries = append(entries, store.TrigramEntry{
				Trigram:  gram,
				RecordID: recordID,
				Word:     word,
				Position: pos,
			})
		}
	}

	if err := m.store.InsertTrigramEntries(ctx, entries); err != nil {
		return fmt.Errorf("failed to insert trigram entries for %s: %w", recordID, err)
	}
	return nil
}

func (m *Maintainer) upsertVector(ctx context.Context, recordID string, tokens []string) error {
	// Document frequencies as of this build; not retroactively applied
	// to previously built vectors.
	docFreq, err := m.store.DocumentFrequencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to load document frequencies: %w", err)
	}
	totalDocs, err := m.store.CountRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if totalDocs < 1 {
		totalDocs = 1
	}

	weights := textutil.TFIDF(tokens, docFreq, totalDocs)

	entry := &store.VectorEntry{
		RecordID:        recordID,
		Weights:         weights,
		WordCount:       len(tokens),
		UniqueWordCount: len(weights),
		Norm:            textutil.Norm(weights),
	}
	if err := m.store.UpsertVector(ctx, entry); err != nil {
		return fmt.Errorf("failed to upsert vector for %s: %w", recordID, err)
	}
	return nil
}

// FlattenMetadata renders metadata values (string, number, bool, nested
// maps, or lists) into one searchable text blob. Keys are not indexed,
// only values.
func FlattenMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}

	// Sorted keys for a deterministic blob
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []byte
	for _, k := range keys {
		out = appendValue(out, metadata[k])
	}
	return string(out)
}

func appendValue(out []byte, v any) []byte {
	switch val := v.(type) {
	case string:
		out = append(out, ' ')
		out = append(out, val...)
	case bool:
		out = append(out, ' ')
		out = strconv.AppendBool(out, val)
	case float64:
		out = append(out, ' ')
		out = strconv.AppendFloat(out, val, 'f', -1, 64)
	case int:
		out = append(out, ' ')
		out = strconv.AppendInt(out, int64(val), 10)
	case int64:
		out = append(out, ' ')
		out = strconv.AppendInt(out, val, 10)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = appendValue(out, val[k])
		}
	case []any:
		for _, item := range val {
			out = appendValue(out, item)
		}
	}
	return out
}

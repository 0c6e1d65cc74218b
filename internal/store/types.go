// Package store provides durable persistence for memory records and the
// three derived retrieval indexes (word, trigram, vector) on SQLite.
package store

import (
	"context"
	"time"
)

// MetadataValue is the set of value shapes allowed in record metadata.
// SQLite persists the map as JSON; values round-trip as string, float64,
// bool, or nested map[string]any per encoding/json semantics.
type MetadataValue = any

// Record is a single memory record. Content and metadata are the only
// fields the search core derives index state from; mutating either
// invalidates all derived rows for the id.
type Record struct {
	ID              string         `json:"id"`
	Content         string         `json:"content"`
	Type            string         `json:"type"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ImportanceScore float64        `json:"importance_score"` // in [0,1]
	AccessCount     int64          `json:"access_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	LastAccessed    time.Time      `json:"last_accessed"`
}

// FieldType identifies which record field a word index row came from.
type FieldType string

const (
	FieldContent  FieldType = "content"
	FieldMetadata FieldType = "metadata"
)

// WordEntry is one inverted-index row: a word occurring in a record,
// unique per (word, record_id, field_type).
type WordEntry struct {
	Word      string
	RecordID  string
	Frequency int
	FieldType FieldType
}

// TrigramEntry is one trigram occurrence inside an indexed word.
type TrigramEntry struct {
	Trigram  string // exactly 3 chars
	RecordID string
	Word     string
	Position int
}

// VectorEntry is a record's TF-IDF vector with its precomputed L2 norm.
// Norm always equals the norm of Weights as stored; it is recomputed at
// build time, never incrementally.
type VectorEntry struct {
	RecordID        string
	Weights         map[string]float64
	WordCount       int
	UniqueWordCount int
	Norm            float64
}

// WordMatch is a word-index lookup hit joined with record ranking fields.
type WordMatch struct {
	RecordID        string
	Word            string
	Frequency       int
	ImportanceScore float64
	AccessCount     int64
}

// TrigramMatch is a trigram-index lookup hit joined with record ranking
// fields. One row per (record, word) with the number of shared trigrams.
type TrigramMatch struct {
	RecordID        string
	Word            string
	MatchCount      int
	ImportanceScore float64
	AccessCount     int64
}

// WordFrequency is an autocomplete candidate: a distinct indexed word
// with its total frequency across records.
type WordFrequency struct {
	Word      string
	Frequency int
}

// RecordStore persists memory records.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, id string) (*Record, error)
	UpdateRecord(ctx context.Context, rec *Record) error
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context) ([]*Record, error)
	CountRecords(ctx context.Context) (int, error)
	TouchRecord(ctx context.Context, id string, at time.Time) error // bumps access_count and last_accessed
}

// IndexStore persists the three derived index structures. Rows for a
// record are always replaced wholesale (delete-then-insert), never
// partially merged, so stale fragments of a previous content version
// cannot survive an update.
type IndexStore interface {
	// Maintenance
	InsertWordEntries(ctx context.Context, entries []WordEntry) error
	InsertTrigramEntries(ctx context.Context, entries []TrigramEntry) error
	UpsertVector(ctx context.Context, entry *VectorEntry) error
	DeleteByRecordID(ctx context.Context, recordID string) error
	ClearAll(ctx context.Context) error

	// Query
	LookupWord(ctx context.Context, word string, minImportance float64, typeFilter string) ([]WordMatch, error)
	LookupTrigrams(ctx context.Context, trigrams []string, minImportance float64, typeFilter string, maxCandidates int) ([]TrigramMatch, error)
	AllVectors(ctx context.Context, minImportance float64, typeFilter string) ([]*VectorEntry, error)
	DocumentFrequencies(ctx context.Context) (map[string]int, error)
	PrefixWords(ctx context.Context, prefix string, limit int) ([]WordFrequency, error)

	// Stats
	IndexCounts(ctx context.Context) (words, trigrams, vectors int, err error)
}

// Store is the combined durable store backing records and indexes.
// Both live in one SQLite database so index replacement and record
// writes share a connection and its WAL.
type Store interface {
	RecordStore
	IndexStore
	Close() error
}

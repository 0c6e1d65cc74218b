package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SQLiteStore implements Store on a single SQLite database holding the
// record table and all three index tables. WAL mode with a single-writer
// connection pool keeps index replacement and record writes serialized.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ Store = (*SQLiteStore)(nil)

// validateIntegrity checks an existing database file before opening it.
// Returns nil if the file is absent or healthy.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open(DriverName, path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteStore opens (or creates) the memory database at path.
// An empty path creates an in-memory store for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			return nil, fmt.Errorf("memory database corrupted at %s: %w", path, validErr)
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by the pure Go driver, so set pragmas
	// explicitly as well.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the record table and the three index tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS records (
		id               TEXT PRIMARY KEY,
		content          TEXT NOT NULL,
		type             TEXT NOT NULL DEFAULT '',
		metadata         TEXT NOT NULL DEFAULT '{}',
		importance_score REAL NOT NULL DEFAULT 0.5,
		access_count     INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL,
		last_accessed    INTEGER NOT NULL
	);

	-- Inverted word index: one row per (word, record, field)
	CREATE TABLE IF NOT EXISTS word_index (
		word       TEXT NOT NULL,
		record_id  TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		frequency  INTEGER NOT NULL,
		field_type TEXT NOT NULL,
		PRIMARY KEY (word, record_id, field_type)
	);
	CREATE INDEX IF NOT EXISTS idx_word_index_record ON word_index(record_id);

	-- Trigram index: one row per trigram occurrence inside an indexed word
	CREATE TABLE IF NOT EXISTS trigram_index (
		trigram   TEXT NOT NULL,
		record_id TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		word      TEXT NOT NULL,
		position  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trigram_index_trigram ON trigram_index(trigram);
	CREATE INDEX IF NOT EXISTS idx_trigram_index_record ON trigram_index(record_id);

	-- TF-IDF vectors, one per record, weights as JSON
	CREATE TABLE IF NOT EXISTS vector_index (
		record_id         TEXT PRIMARY KEY REFERENCES records(id) ON DELETE CASCADE,
		weights           TEXT NOT NULL,
		word_count        INTEGER NOT NULL,
		unique_word_count INTEGER NOT NULL,
		norm              REAL NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- RecordStore ---

func (s *SQLiteStore) InsertRecord(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, content, type, metadata, importance_score,
			access_count, created_at, updated_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Content, rec.Type, meta, rec.ImportanceScore,
		rec.AccessCount, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
		rec.LastAccessed.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, type, metadata, importance_score, access_count,
			created_at, updated_at, last_accessed
		FROM records WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET content = ?, type = ?, metadata = ?,
			importance_score = ?, access_count = ?, updated_at = ?, last_accessed = ?
		WHERE id = ?`,
		rec.Content, rec.Type, meta, rec.ImportanceScore, rec.AccessCount,
		rec.UpdatedAt.UnixNano(), rec.LastAccessed.UnixNano(), rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	// Index rows cascade via foreign keys.
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, type, metadata, importance_score, access_count,
			created_at, updated_at, last_accessed
		FROM records ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) CountRecords(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) TouchRecord(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE records SET access_count = access_count + 1, last_accessed = ?
		WHERE id = ?`, at.UnixNano(), id)
	return err
}

// --- IndexStore ---

func (s *SQLiteStore) InsertWordEntries(ctx context.Context, entries []WordEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO word_index (word, record_id, frequency, field_type)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare word insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Word, e.RecordID, e.Frequency, string(e.FieldType)); err != nil {
			return fmt.Errorf("failed to insert word entry %q: %w", e.Word, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) InsertTrigramEntries(ctx context.Context, entries []TrigramEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trigram_index (trigram, record_id, word, position)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare trigram insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Trigram, e.RecordID, e.Word, e.Position); err != nil {
			return fmt.Errorf("failed to insert trigram entry %q: %w", e.Trigram, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertVector(ctx context.Context, entry *VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	weights, err := json.Marshal(entry.Weights)
	if err != nil {
		return fmt.Errorf("failed to encode vector weights: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO vector_index
			(record_id, weights, word_count, unique_word_count, norm)
		VALUES (?, ?, ?, ?, ?)`,
		entry.RecordID, string(weights), entry.WordCount, entry.UniqueWordCount, entry.Norm)
	if err != nil {
		return fmt.Errorf("failed to upsert vector for %s: %w", entry.RecordID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteByRecordID(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"word_index", "trigram_index", "vector_index"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE record_id = ?", table), recordID); err != nil {
			return fmt.Errorf("failed to clear %s for %s: %w", table, recordID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"word_index", "trigram_index", "vector_index"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LookupWord(ctx context.Context, word string, minImportance float64, typeFilter string) ([]WordMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	query := `
		SELECT w.record_id, w.word, SUM(w.frequency),
			r.importance_score, r.access_count
		FROM word_index w
		JOIN records r ON r.id = w.record_id
		WHERE w.word = ? AND r.importance_score >= ?`
	args := []any{word, minImportance}
	if typeFilter != "" {
		query += ` AND r.type = ?`
		args = append(args, typeFilter)
	}
	query += ` GROUP BY w.record_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("word lookup failed: %w", err)
	}
	defer rows.Close()

	var matches []WordMatch
	for rows.Next() {
		var m WordMatch
		if err := rows.Scan(&m.RecordID, &m.Word, &m.Frequency, &m.ImportanceScore, &m.AccessCount); err != nil {
			return nil, fmt.Errorf("failed to scan word match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) LookupTrigrams(ctx context.Context, trigrams []string, minImportance float64, typeFilter string, maxCandidates int) ([]TrigramMatch, error) {
	if len(trigrams) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	placeholders := make([]string, len(trigrams))
	args := make([]any, 0, len(trigrams)+3)
	for i, g := range trigrams {
		placeholders[i] = "?"
		args = append(args, g)
	}

	query := fmt.Sprintf(`
		SELECT t.record_id, t.word, COUNT(DISTINCT t.trigram),
			r.importance_score, r.access_count
		FROM trigram_index t
		JOIN records r ON r.id = t.record_id
		WHERE t.trigram IN (%s) AND r.importance_score >= ?`,
		strings.Join(placeholders, ","))
	args = append(args, minImportance)
	if typeFilter != "" {
		query += ` AND r.type = ?`
		args = append(args, typeFilter)
	}
	query += ` GROUP BY t.record_id, t.word ORDER BY COUNT(DISTINCT t.trigram) DESC`
	if maxCandidates > 0 {
		query += ` LIMIT ?`
		args = append(args, maxCandidates)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trigram lookup failed: %w", err)
	}
	defer rows.Close()

	var matches []TrigramMatch
	for rows.Next() {
		var m TrigramMatch
		if err := rows.Scan(&m.RecordID, &m.Word, &m.MatchCount, &m.ImportanceScore, &m.AccessCount); err != nil {
			return nil, fmt.Errorf("failed to scan trigram match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) AllVectors(ctx context.Context, minImportance float64, typeFilter string) ([]*VectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	query := `
		SELECT v.record_id, v.weights, v.word_count, v.unique_word_count, v.norm
		FROM vector_index v
		JOIN records r ON r.id = v.record_id
		WHERE r.importance_score >= ?`
	args := []any{minImportance}
	if typeFilter != "" {
		query += ` AND r.type = ?`
		args = append(args, typeFilter)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector scan failed: %w", err)
	}
	defer rows.Close()

	var entries []*VectorEntry
	for rows.Next() {
		var (
			e       VectorEntry
			weights string
		)
		if err := rows.Scan(&e.RecordID, &weights, &e.WordCount, &e.UniqueWordCount, &e.Norm); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		if err := json.Unmarshal([]byte(weights), &e.Weights); err != nil {
			// Malformed vector data scores as similarity 0 downstream
			// rather than failing the whole search.
			slog.Warn("malformed vector data, treating as empty",
				slog.String("record_id", e.RecordID),
				slog.String("error", err.Error()))
			e.Weights = nil
			e.Norm = 0
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) DocumentFrequencies(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT word, COUNT(DISTINCT record_id) FROM word_index GROUP BY word`)
	if err != nil {
		return nil, fmt.Errorf("document frequency scan failed: %w", err)
	}
	defer rows.Close()

	freqs := make(map[string]int)
	for rows.Next() {
		var (
			word string
			df   int
		)
		if err := rows.Scan(&word, &df); err != nil {
			return nil, fmt.Errorf("failed to scan document frequency: %w", err)
		}
		freqs[word] = df
	}
	return freqs, rows.Err()
}

func (s *SQLiteStore) PrefixWords(ctx context.Context, prefix string, limit int) ([]WordFrequency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	// Escape LIKE wildcards in the prefix
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)

	rows, err := s.db.QueryContext(ctx, `
		SELECT word, SUM(frequency) AS total
		FROM word_index
		WHERE word LIKE ? ESCAPE '\'
		GROUP BY word
		ORDER BY total DESC, word
		LIMIT ?`, escaped+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("prefix lookup failed: %w", err)
	}
	defer rows.Close()

	var words []WordFrequency
	for rows.Next() {
		var wf WordFrequency
		if err := rows.Scan(&wf.Word, &wf.Frequency); err != nil {
			return nil, fmt.Errorf("failed to scan word frequency: %w", err)
		}
		words = append(words, wf)
	}
	return words, rows.Err()
}

func (s *SQLiteStore) IndexCounts(ctx context.Context) (words, trigrams, vectors int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, 0, 0, fmt.Errorf("store is closed")
	}

	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM word_index`).Scan(&words); err != nil {
		return
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trigram_index`).Scan(&trigrams); err != nil {
		return
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_index`).Scan(&vectors)
	return
}

// Close closes the store. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		// Checkpoint before close to ensure durability
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec                            Record
		meta                           string
		createdAt, updatedAt, accessed int64
	)
	if err := row.Scan(&rec.ID, &rec.Content, &rec.Type, &meta,
		&rec.ImportanceScore, &rec.AccessCount,
		&createdAt, &updatedAt, &accessed); err != nil {
		return nil, err
	}

	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UpdatedAt = time.Unix(0, updatedAt)
	rec.LastAccessed = time.Unix(0, accessed)
	return &rec, nil
}

func encodeMetadata(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

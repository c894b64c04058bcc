// Package vectorstore implements C8: embed-and-persist job documents plus
// similarity search, filtering, and deletion. It is grounded on the
// pack's pgvector-backed resume repository (postgrest_repo.go), adapted
// from Postgres/pgvector to an embedded modernc.org/sqlite store — the
// spec's persisted-state layout (§6) wants an opaque on-disk directory,
// matching C2's embedded-store precedent, so similarity is computed
// in-process instead of pushed down to a vector extension.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"github.com/pgvector/pgvector-go"

	"jobscout/internal/config"
	"jobscout/internal/logging/types"
	"jobscout/internal/xerrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id        TEXT PRIMARY KEY,
	job_id        TEXT,
	document_type TEXT,
	content       TEXT NOT NULL,
	metadata      TEXT NOT NULL DEFAULT '{}',
	embedding     BLOB NOT NULL,
	created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_job_id ON documents(job_id);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
`

// Embedder generates a vector for a document's text content. The real
// implementation calls an embedding API (e.g. openai-go); tests supply a
// deterministic stub.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is one unit handed to add_documents: free text plus arbitrary
// metadata that gets flattened to strings before storage (spec §4.8).
type Document struct {
	Content  string
	Metadata map[string]any
}

// StoredDoc is a persisted document as returned by search operations.
type StoredDoc struct {
	DocID     string
	JobID     string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Filters restricts similarity_search to a subset of the collection.
// Per spec §4.8 the contract requires at minimum equality on job_id,
// document_type, and a range on created_at.
type Filters struct {
	JobID        string
	DocumentType string
	CreatedAfter *time.Time
	CreatedBefore *time.Time
}

// Stats mirrors get_collection_stats().
type Stats struct {
	Count int
	Name  string
	Path  string
}

// Store is C8's embedded vector store.
type Store struct {
	db       *sqlx.DB
	embedder Embedder
	name     string
	path     string
	logger   types.Logger
}

// Open creates/attaches the sqlite-backed collection at
// cfg.RAGSystem.VectorDB.PersistDirectory/<collection_name>.db.
func Open(cfg *config.Config, embedder Embedder, logger types.Logger) (*Store, error) {
	dir := cfg.RAGSystem.VectorDB.PersistDirectory
	if dir == "" {
		dir = "chroma_db"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.NewStorageError("create vector store directory", err)
	}
	name := cfg.RAGSystem.VectorDB.CollectionName
	if name == "" {
		name = "jobs"
	}
	path := filepath.Join(dir, name+".db")

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, xerrors.NewVectorStoreError("open vector store database", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, xerrors.NewVectorStoreError("migrate vector store schema", err)
	}

	return &Store{db: db, embedder: embedder, name: name, path: path, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// AddDocuments stamps each doc's metadata with created_at and job_id,
// flattens complex metadata values, embeds the content, and persists.
func (s *Store) AddDocuments(ctx context.Context, docs []Document, jobID string) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, xerrors.NewVectorStoreError("embed documents", err)
	}
	if len(vectors) != len(docs) {
		return nil, xerrors.NewVectorStoreError("embedder returned mismatched vector count", nil)
	}

	now := time.Now().UTC()
	ids := make([]string, len(docs))
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, xerrors.NewVectorStoreError("begin add_documents transaction", err)
	}
	defer tx.Rollback()

	for i, d := range docs {
		meta := flattenMetadata(d.Metadata)
		meta["job_id"] = jobID
		meta["created_at"] = now.Format(time.RFC3339)
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, xerrors.NewVectorStoreError("marshal document metadata", err)
		}
		docID := fmt.Sprintf("%s-%d-%d", jobID, now.UnixNano(), i)
		docType := meta["document_type"]

		_, err = tx.Exec(
			`INSERT INTO documents (doc_id, job_id, document_type, content, metadata, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			docID, jobID, docType, d.Content, string(metaJSON), encodeVector(vectors[i]), now,
		)
		if err != nil {
			return nil, xerrors.NewVectorStoreError("insert document", err)
		}
		ids[i] = docID
	}
	if err := tx.Commit(); err != nil {
		return nil, xerrors.NewVectorStoreError("commit add_documents transaction", err)
	}
	return ids, nil
}

// flattenMetadata applies spec §4.8's coercion rules: list → comma-joined
// string; mapping → JSON string; everything else → string coercion.
func flattenMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			out[k] = val
		case []string:
			out[k] = strings.Join(val, ",")
		case []any:
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = fmt.Sprintf("%v", item)
			}
			out[k] = strings.Join(parts, ",")
		case map[string]any:
			if b, err := json.Marshal(val); err == nil {
				out[k] = string(b)
			}
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

type scoredRow struct {
	doc   StoredDoc
	score float64
}

// SimilaritySearch returns the top-k matching documents.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, filters *Filters) ([]StoredDoc, error) {
	scored, err := s.SimilaritySearchWithScore(ctx, query, k, filters)
	if err != nil {
		return nil, err
	}
	docs := make([]StoredDoc, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Doc
	}
	return docs, nil
}

// ScoredDoc pairs a document with its cosine similarity score in [0,1].
type ScoredDoc struct {
	Doc   StoredDoc
	Score float64
}

// SimilaritySearchWithScore embeds the query, scans the (filtered)
// collection computing cosine similarity in-process, and returns the
// top-k by descending score.
func (s *Store) SimilaritySearchWithScore(ctx context.Context, query string, k int, filters *Filters) ([]ScoredDoc, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, xerrors.NewVectorStoreError("embed query", err)
	}
	queryVec := vectors[0]

	rows, err := s.queryRows(ctx, filters)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredRow, 0, len(rows))
	for _, r := range rows {
		vec := decodeVector(r.Embedding)
		score := cosineSimilarity(queryVec, vec)
		var meta map[string]string
		_ = json.Unmarshal([]byte(r.Metadata), &meta)
		scored = append(scored, scoredRow{
			doc: StoredDoc{DocID: r.DocID, JobID: r.JobID.String, Content: r.Content, Metadata: meta, CreatedAt: r.CreatedAt},
			score: score,
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	out := make([]ScoredDoc, len(scored))
	for i, sr := range scored {
		out[i] = ScoredDoc{Doc: sr.doc, Score: sr.score}
	}
	return out, nil
}

type documentRow struct {
	DocID     string         `db:"doc_id"`
	JobID     sql.NullString `db:"job_id"`
	Content   string         `db:"content"`
	Metadata  string         `db:"metadata"`
	Embedding []byte         `db:"embedding"`
	CreatedAt time.Time      `db:"created_at"`
}

func (s *Store) queryRows(ctx context.Context, filters *Filters) ([]documentRow, error) {
	query := "SELECT doc_id, job_id, content, metadata, embedding, created_at FROM documents WHERE 1=1"
	var args []any
	if filters != nil {
		if filters.JobID != "" {
			query += " AND job_id = ?"
			args = append(args, filters.JobID)
		}
		if filters.DocumentType != "" {
			query += " AND document_type = ?"
			args = append(args, filters.DocumentType)
		}
		if filters.CreatedAfter != nil {
			query += " AND created_at >= ?"
			args = append(args, *filters.CreatedAfter)
		}
		if filters.CreatedBefore != nil {
			query += " AND created_at <= ?"
			args = append(args, *filters.CreatedBefore)
		}
	}

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, xerrors.NewVectorStoreError("query documents", err)
	}
	return rows, nil
}

// DeleteDocuments removes every document stamped with the given job_id.
func (s *Store) DeleteDocuments(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE job_id = ?", jobID)
	if err != nil {
		return false, xerrors.NewVectorStoreError("delete documents", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateDocumentMetadata replaces a document's metadata in place.
func (s *Store) UpdateDocumentMetadata(ctx context.Context, docID string, metadata map[string]any) (bool, error) {
	flat := flattenMetadata(metadata)
	b, err := json.Marshal(flat)
	if err != nil {
		return false, xerrors.NewVectorStoreError("marshal updated metadata", err)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE documents SET metadata = ? WHERE doc_id = ?", string(b), docID)
	if err != nil {
		return false, xerrors.NewVectorStoreError("update document metadata", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetCollectionStats implements get_collection_stats().
func (s *Store) GetCollectionStats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM documents"); err != nil {
		return Stats{}, xerrors.NewVectorStoreError("count documents", err)
	}
	return Stats{Count: count, Name: s.name, Path: s.path}, nil
}

// Backup copies the sqlite file into dir via sqlite's own backup pragma
// equivalent: a VACUUM INTO, which produces a consistent-snapshot copy
// without needing to pause writers.
func (s *Store) Backup(ctx context.Context, dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, xerrors.NewStorageError("create backup directory", err)
	}
	dest := filepath.Join(dir, fmt.Sprintf("%s-%d.db", s.name, time.Now().UTC().Unix()))
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return false, xerrors.NewVectorStoreError("backup vector store", err)
	}
	return true, nil
}

func encodeVector(v []float32) []byte {
	return []byte(pgvector.NewVector(v).String())
}

func decodeVector(b []byte) []float32 {
	vec := pgvector.Vector{}
	if err := vec.Scan(string(b)); err != nil {
		return nil
	}
	return vec.Slice()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// clamp into [0,1]: cosine similarity of embeddings from the same
	// model family is effectively non-negative in practice, but guard
	// against floating point drift pushing just past the boundary.
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/memoir/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
)

// DefaultMaxOpenConns bounds the connection pool when no option is given.
const DefaultMaxOpenConns = 4

// Store is a SQLite-based storage that provides the profile, answer and
// embedding stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*options)

type options struct {
	maxOpenConns int
}

// WithMaxOpenConns sets the connection pool size.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.memoir/data/memoir.db.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	o := options{maxOpenConns: DefaultMaxOpenConns}
	for _, opt := range opts {
		opt(&o)
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".memoir", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "memoir.db")

	// Pragmas in the DSN apply to every pooled connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxOpenConns)

	s := &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Profiles returns a ProfileStore backed by this store.
func (s *Store) Profiles() driven.ProfileStore {
	return &profileStore{store: s}
}

// Answers returns an AnswerStore backed by this store.
func (s *Store) Answers() driven.AnswerStore {
	return &answerStore{store: s}
}

// Embeddings returns an EmbeddingStore backed by this store.
func (s *Store) Embeddings() driven.EmbeddingStore {
	return &embeddingStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// ==================== Profile Store ====================

// profileStore implements driven.ProfileStore.
type profileStore struct {
	store *Store
}

var _ driven.ProfileStore = (*profileStore)(nil)

// Create stores a new profile and assigns its ID.
func (s *profileStore) Create(ctx context.Context, profile *domain.Profile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.store.now()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO profiles (name, pin, created_at) VALUES (?, ?, ?)
	`, profile.Name, profile.PIN, profile.CreatedAt)
	if err != nil {
		if isConstraint(err, "UNIQUE") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("inserting profile: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading profile id: %w", err)
	}
	profile.ID = id
	return nil
}

// Get retrieves a profile by ID.
func (s *profileStore) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, pin, created_at FROM profiles WHERE id = ?
	`, id)
	return scanProfile(row)
}

// GetByName retrieves a profile by name.
func (s *profileStore) GetByName(ctx context.Context, name string) (*domain.Profile, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, pin, created_at FROM profiles WHERE name = ?
	`, name)
	return scanProfile(row)
}

// List returns all profiles ordered by ID.
func (s *profileStore) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, pin, created_at FROM profiles ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// ==================== Answer Store ====================

// answerStore implements driven.AnswerStore.
type answerStore struct {
	store *Store
}

var _ driven.AnswerStore = (*answerStore)(nil)

const answerColumns = "id, profile_id, question, answer, created_at, updated_at"

// Create stores a new answer and assigns its ID and timestamps.
func (s *answerStore) Create(ctx context.Context, answer *domain.Answer) error {
	now := s.store.now()
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO answers (profile_id, question, answer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, answer.ProfileID, answer.Question, answer.Text, now, now)
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return domain.ErrNotFound
		}
		return fmt.Errorf("inserting answer: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading answer id: %w", err)
	}
	answer.ID = id
	answer.CreatedAt = now
	answer.UpdatedAt = now
	return nil
}

// Get retrieves an answer by ID.
func (s *answerStore) Get(ctx context.Context, id int64) (*domain.Answer, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+answerColumns+" FROM answers WHERE id = ?", id)
	return scanAnswer(row)
}

// UpdateText replaces the answer text and drops the stale embedding.
func (s *answerStore) UpdateText(ctx context.Context, id int64, text string) (*domain.Answer, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		UPDATE answers SET answer = ?, updated_at = ? WHERE id = ?
	`, text, s.store.now(), id)
	if err != nil {
		return nil, fmt.Errorf("updating answer: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("reading affected rows: %w", err)
	} else if n == 0 {
		return nil, domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM answer_embeddings WHERE answer_id = ?", id); err != nil {
		return nil, fmt.Errorf("dropping stale embedding: %w", err)
	}

	answer, err := scanAnswer(tx.QueryRowContext(ctx, "SELECT "+answerColumns+" FROM answers WHERE id = ?", id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return answer, nil
}

// Delete removes an answer; its embedding goes with it via ON DELETE CASCADE.
func (s *answerStore) Delete(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM answers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns up to limit answers of a profile, most recent first.
func (s *answerStore) List(ctx context.Context, profileID int64, limit int) ([]domain.Answer, error) {
	return s.query(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE profile_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, profileID, sqlLimit(limit))
}

// ListAll returns every answer of a profile, oldest first.
func (s *answerStore) ListAll(ctx context.Context, profileID int64) ([]domain.Answer, error) {
	return s.query(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE profile_id = ?
		ORDER BY created_at ASC, id ASC
	`, profileID)
}

// Count returns the number of answers of a profile.
func (s *answerStore) Count(ctx context.Context, profileID int64) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM answers WHERE profile_id = ?", profileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting answers: %w", err)
	}
	return n, nil
}

// Search returns answers whose question or text contains term case-insensitively,
// most recent first. SQLite's lower() only folds ASCII, so rows are filtered in Go.
func (s *answerStore) Search(ctx context.Context, profileID int64, term string, limit int) ([]domain.Answer, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE profile_id = ?
		ORDER BY created_at DESC, id DESC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("searching answers: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(term)
	answers := []domain.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(strings.ToLower(a.Question), needle) &&
			!strings.Contains(strings.ToLower(a.Text), needle) {
			continue
		}
		answers = append(answers, *a)
		if limit > 0 && len(answers) == limit {
			break
		}
	}
	return answers, rows.Err()
}

func (s *answerStore) query(ctx context.Context, query string, args ...any) ([]domain.Answer, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying answers: %w", err)
	}
	defer rows.Close()

	answers := []domain.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}
	return answers, rows.Err()
}

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore.
type embeddingStore struct {
	store *Store
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// Upsert creates or replaces the embedding of an answer.
func (s *embeddingStore) Upsert(ctx context.Context, e *domain.AnswerEmbedding) error {
	now := s.store.now()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO answer_embeddings (answer_id, content, vector, dimensions, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(answer_id) DO UPDATE SET
			content = excluded.content,
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, e.AnswerID, e.Content, float32SliceToBytes(e.Vector), len(e.Vector), e.Model, now, now)
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return domain.ErrNotFound
		}
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// Get retrieves the embedding of an answer.
func (s *embeddingStore) Get(ctx context.Context, answerID int64) (*domain.AnswerEmbedding, error) {
	var e domain.AnswerEmbedding
	var blob []byte
	err := s.store.db.QueryRowContext(ctx, `
		SELECT answer_id, content, vector, model, created_at, updated_at
		FROM answer_embeddings WHERE answer_id = ?
	`, answerID).Scan(&e.AnswerID, &e.Content, &blob, &e.Model, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	e.Vector = bytesToFloat32Slice(blob)
	return &e, nil
}

// ListEmbedded returns up to limit embedded answers of a profile, most recent first.
func (s *embeddingStore) ListEmbedded(ctx context.Context, profileID int64, limit int) ([]domain.EmbeddedAnswer, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT a.id, a.profile_id, a.question, a.answer, a.created_at, a.updated_at, e.vector
		FROM answers a
		JOIN answer_embeddings e ON e.answer_id = a.id
		WHERE a.profile_id = ?
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ?
	`, profileID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying embedded answers: %w", err)
	}
	defer rows.Close()

	out := []domain.EmbeddedAnswer{}
	for rows.Next() {
		var ea domain.EmbeddedAnswer
		var blob []byte
		if err := rows.Scan(&ea.Answer.ID, &ea.Answer.ProfileID, &ea.Answer.Question, &ea.Answer.Text,
			&ea.Answer.CreatedAt, &ea.Answer.UpdatedAt, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedded answer: %w", err)
		}
		ea.Vector = bytesToFloat32Slice(blob)
		out = append(out, ea)
	}
	return out, rows.Err()
}

// ListMissing returns up to limit answers of a profile without an embedding, oldest first.
func (s *embeddingStore) ListMissing(ctx context.Context, profileID int64, limit int) ([]domain.Answer, error) {
	answers := &answerStore{store: s.store}
	return answers.query(ctx, `
		SELECT `+answerColumns+` FROM answers a
		WHERE a.profile_id = ?
		  AND NOT EXISTS (SELECT 1 FROM answer_embeddings e WHERE e.answer_id = a.id)
		ORDER BY a.created_at ASC, a.id ASC
		LIMIT ?
	`, profileID, sqlLimit(limit))
}

// ==================== Helpers ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.Name, &p.PIN, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning profile: %w", err)
	}
	return &p, nil
}

func scanAnswer(row rowScanner) (*domain.Answer, error) {
	var a domain.Answer
	if err := row.Scan(&a.ID, &a.ProfileID, &a.Question, &a.Text, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning answer: %w", err)
	}
	return &a, nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// isConstraint reports whether err is a SQLite constraint violation of the given kind.
func isConstraint(err error, kind string) bool {
	return strings.Contains(err.Error(), kind+" constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

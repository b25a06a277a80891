package resultfile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	path  TEXT PRIMARY KEY,
	shape TEXT NOT NULL,
	data  BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS scalars (
	path  TEXT PRIMARY KEY,
	value REAL NOT NULL
);
`

var errNoDataset = errors.New("no such dataset")

// Dataset is one array stored under a hierarchical path.
type Dataset struct {
	Path   string
	Shape  []int
	Values []float64
}

// Store is a single result file: a SQLite database of datasets and scalars.
type Store struct {
	db   *sql.DB
	path string
}

// CreateStore creates (or reopens for writing) the file at path.
func CreateStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema in %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenStore opens an existing file read-only.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

// PutDataset stores values under path, replacing any previous dataset.
func (s *Store) PutDataset(ctx context.Context, path string, shape []int, values []float64) error {
	if n := shapeSize(shape); n != len(values) {
		return fmt.Errorf("dataset %s: shape %v holds %d values, got %d", path, shape, n, len(values))
	}
	blob, err := encodeValues(values)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", path, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO datasets (path, shape, data) VALUES (?, ?, ?)`,
		path, formatShape(shape), blob)
	if err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return nil
}

// Dataset reads the dataset stored under path.
func (s *Store) Dataset(ctx context.Context, path string) (Dataset, error) {
	var shape string
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT shape, data FROM datasets WHERE path = ?`, path).Scan(&shape, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, fmt.Errorf("%w: %s", errNoDataset, path)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	dims, err := parseShape(shape)
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
	}
	values, err := decodeValues(blob)
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
	}
	if shapeSize(dims) != len(values) {
		return Dataset{}, fmt.Errorf("dataset %s: shape %v does not match %d values", path, dims, len(values))
	}
	return Dataset{Path: path, Shape: dims, Values: values}, nil
}

// DatasetPaths lists dataset paths starting with prefix, sorted.
func (s *Store) DatasetPaths(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM datasets WHERE substr(path, 1, ?) = ? ORDER BY path`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan dataset path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *Store) PutScalar(ctx context.Context, path string, value float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scalars (path, value) VALUES (?, ?)`, path, value)
	if err != nil {
		return fmt.Errorf("failed to write scalar %s: %w", path, err)
	}
	return nil
}

func (s *Store) Scalar(ctx context.Context, path string) (float64, error) {
	var v float64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM scalars WHERE path = ?`, path).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", errNoDataset, path)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read scalar %s: %w", path, err)
	}
	return v, nil
}

// Scalars returns every scalar under prefix keyed by the remainder of its path.
func (s *Store) Scalars(ctx context.Context, prefix string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, value FROM scalars WHERE substr(path, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list scalars: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var p string
		var v float64
		if err := rows.Scan(&p, &v); err != nil {
			return nil, fmt.Errorf("failed to scan scalar: %w", err)
		}
		out[strings.TrimPrefix(p, prefix)] = v
	}
	return out, rows.Err()
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func parseShape(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(p)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid shape %q", s)
		}
		dims[i] = d
	}
	return dims, nil
}

func shapeSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

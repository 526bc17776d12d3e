package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	peers "github.com/goliatone/go-peers"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	sourceLabel  = "go-peers"
	postgresPath = "data/sql/migrations"
	sqlitePath   = postgresPath + "/sqlite"
)

// DialectForDriver maps a database/sql driver name to a migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch normalize(driver) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// DialectFilesystem is the migration tree of a single dialect.
type DialectFilesystem struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []DialectFilesystem
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithValidationTargets restricts registration to the given dialects. Blank
// targets are ignored; an all-blank list keeps the defaults.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		var next []string
		for _, target := range targets {
			target = normalize(target)
			if target == "" || slices.Contains(next, target) {
				continue
			}
			next = append(next, target)
		}
		if len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// Filesystems returns the embedded postgres and sqlite migration trees. Each
// tree must hold at least one *.up.sql file.
func Filesystems() ([]DialectFilesystem, error) {
	root := peers.GetMigrationsFS()
	out := make([]DialectFilesystem, 0, 2)
	for _, entry := range []struct{ dialect, path string }{
		{dialect: DialectPostgres, path: postgresPath},
		{dialect: DialectSQLite, path: sqlitePath},
	} {
		sub, err := fs.Sub(root, entry.path)
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", entry.dialect, err)
		}
		matches, err := fs.Glob(sub, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", entry.path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", entry.path)
		}
		out = append(out, DialectFilesystem{Dialect: entry.dialect, Path: entry.path, FS: sub})
	}
	return out, nil
}

// RegisterForDriver registers only the migrations of the dialect backing the
// given database/sql driver.
func RegisterForDriver(ctx context.Context, driver string, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return Registration{}, err
	}
	return Register(ctx, registerFn, append(opts, WithValidationTargets(dialect))...)
}

// Register hands each embedded dialect filesystem selected by the validation
// targets to registerFn. Both dialects are selected by default.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       sourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	for _, fsys := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, fsys.Dialect) {
			continue
		}
		if err := registerFn(ctx, fsys.Dialect, reg.SourceLabel, fsys.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", fsys.Dialect, fsys.Path, err)
		}
	}
	return reg, nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

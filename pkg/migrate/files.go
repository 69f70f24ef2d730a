package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

const fileTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// migrationFile is a parsed <version>_<slug>.sql name.
type migrationFile struct {
	Version string
	Slug    string
}

func (f migrationFile) Name() string { return f.Version + "_" + f.Slug + ".sql" }

func parseFileName(name string) (migrationFile, error) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return migrationFile{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	if _, err := time.Parse(versionLayout, m[1]); err != nil {
		return migrationFile{}, fmt.Errorf("migration %q has no valid timestamp: %w", name, err)
	}
	return migrationFile{Version: m[1], Slug: m[2]}, nil
}

func slugify(name string) string {
	return strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty goose migration into dir and returns its path.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	file := migrationFile{Version: now.UTC().Format(versionLayout), Slug: slugify(name)}
	if file.Slug == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	target := filepath.Join(dir, file.Name())
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("migration already exists: %s", target)
		}
		return "", fmt.Errorf("create migration %q: %w", target, err)
	}
	defer out.Close()
	if _, err := fmt.Fprintf(out, fileTemplate, file.Slug); err != nil {
		return "", fmt.Errorf("write migration %q: %w", target, err)
	}
	return target, nil
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return ValidateFS(embedded, embeddedDir)
}

// ValidateFS checks names, version uniqueness, goose sections and that every
// StatementBegin is closed.
func ValidateFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		file, err := parseFileName(e.Name())
		if err != nil {
			return err
		}
		if prev, ok := seen[file.Version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", file.Version, prev, e.Name())
		}
		seen[file.Version] = e.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read file %q: %w", e.Name(), err)
		}
		if err := checkSections(e.Name(), string(body)); err != nil {
			return err
		}
	}
	return nil
}

func checkSections(name, body string) error {
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, marker) {
			return fmt.Errorf("migration %q missing %q", name, marker)
		}
	}
	if strings.Index(body, "-- +goose Down") < strings.Index(body, "-- +goose Up") {
		return fmt.Errorf("migration %q has Down before Up", name)
	}
	begins := strings.Count(body, "-- +goose StatementBegin")
	if ends := strings.Count(body, "-- +goose StatementEnd"); begins != ends {
		return fmt.Errorf("migration %q has %d StatementBegin and %d StatementEnd", name, begins, ends)
	}
	return nil
}

// Package loam reads activity definitions from a Loam repository: a directory
// of markdown files with YAML frontmatter.
package loam

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/loam"
)

// Registrar is the part of the registry the catalog imports into.
type Registrar interface {
	Register(ctx context.Context, act domain.Activity) error
}

// Catalog adapts a Loam repository to a source of activity definitions.
type Catalog struct {
	Repo     *loam.TypedRepository[ActivityMetadata]
	SourceID string
	now      func() time.Time
}

// New creates a catalog over an existing typed repository.
func New(repo *loam.TypedRepository[ActivityMetadata], sourceID string) *Catalog {
	return &Catalog{Repo: repo, SourceID: sourceID, now: time.Now}
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric types consistent across markdown and JSON files.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ActivityMetadata](repo), "catalog:"+filepath.Base(absPath)), nil
}

// Definitions lists every entry of the catalog, sorted by slug.
func (c *Catalog) Definitions(ctx context.Context) ([]domain.Definition, error) {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	defs := make([]domain.Definition, 0, len(docs))
	for _, doc := range docs {
		slug := doc.Data.Slug
		if slug == "" {
			slug = trimExtension(doc.ID)
		}
		if existing, ok := seen[slug]; ok {
			return nil, fmt.Errorf("collision detected: slug '%s' is defined in both '%s' and '%s'", slug, existing, doc.ID)
		}
		seen[slug] = doc.ID

		// List carries frontmatter only; the body needs a full read.
		full, err := c.Repo.Get(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", doc.ID, err)
		}
		defs = append(defs, c.definition(slug, full.Data, full.Content))
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })
	return defs, nil
}

func (c *Catalog) definition(slug string, meta ActivityMetadata, body string) domain.Definition {
	title := meta.Title
	if title == "" {
		title = slug
	}
	sourceID := meta.SourceID
	if sourceID == "" {
		sourceID = c.SourceID
	}
	created := c.now().UTC()
	if meta.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, meta.CreatedAt); err == nil {
			created = t.UTC()
		}
	}

	return domain.Definition{
		Slug:        slug,
		Title:       title,
		Phases:      meta.Phases,
		Description: strings.TrimSpace(body),
		Metadata: domain.Metadata{
			SourceID:          sourceID,
			CreatedAt:         created,
			DefinitionVersion: meta.version(),
			IsUserGenerated:   true,
			CanRegenerate:     meta.CanRegenerate,
		},
	}
}

// ImportResult reports what an Import did.
type ImportResult struct {
	Imported []string
	Skipped  []string
}

// Import registers every catalog entry through build.
// Entries clashing with built-ins are skipped; other failures are joined.
func (c *Catalog) Import(ctx context.Context, reg Registrar, build func(domain.Definition) domain.Activity) (ImportResult, error) {
	var res ImportResult
	defs, err := c.Definitions(ctx)
	if err != nil {
		return res, err
	}

	var errs []error
	for _, def := range defs {
		err := reg.Register(ctx, build(def))
		switch {
		case err == nil:
			res.Imported = append(res.Imported, def.Slug)
		case errors.Is(err, domain.ErrSlugConflict), errors.Is(err, domain.ErrMalformedTag):
			res.Skipped = append(res.Skipped, def.Slug)
		default:
			errs = append(errs, fmt.Errorf("import %s: %w", def.Slug, err))
		}
	}
	return res, errors.Join(errs...)
}

// Watch signals the id of every changed catalog file.
func (c *Catalog) Watch(ctx context.Context) (<-chan string, error) {
	events, err := c.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

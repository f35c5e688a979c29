// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Import stages filePath as a new entry named name and appends it.
func (a *Archive) Import(name string, filePath string, compress bool) (*Entry, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidEntryPath)
	}

	if existing := a.FindByName(name); existing != nil {
		return nil, fmt.Errorf("%w: %q conflicts with entry %d %q", ErrDuplicateEntryName, name, existing.ID, existing.Name)
	}

	var codec Codec
	if compress {
		codec = a.opts.NewCodec()
	}

	e, err := NewImportedEntry(name, filePath, compress, codec)
	if err != nil {
		return nil, err
	}

	if _, err := a.Append(e); err != nil {
		return nil, err
	}

	return e, nil
}

// Replace stages filePath as new content of entry id, keeping its id, name and position.
func (a *Archive) Replace(id uint32, filePath string, compress bool) (*Entry, error) {
	e := a.FindByID(id)
	if e == nil {
		return nil, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}

	var codec Codec
	if compress {
		codec = a.opts.NewCodec()
	}

	staged, err := NewImportedEntry(e.Name, filePath, compress, codec)
	if err != nil {
		return nil, err
	}

	e.importSource = staged.importSource
	e.Size = staged.Size
	e.CompSize = staged.CompSize
	e.Compressed = staged.Compressed
	e.codec = staged.codec
	e.origin = -1

	a.log.Debug("entry replaced",
		slog.Uint64("id", uint64(e.ID)),
		slog.String("name", e.Name),
		slog.String("source", filePath),
		slog.Bool("compressed", e.Compressed),
	)

	return e, nil
}

// ImportDir stages every regular file under root in path order and returns the number imported.
// Entry names use "\" separators and are prefixed with opts.Prefix.
func (a *Archive) ImportDir(ctx context.Context, root string, opts ImportOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := newRuleMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return 0, fmt.Errorf("compile compress rules: %w", err)
	}

	type candidate struct {
		name string
		path string
		size int64
	}

	var candidates []candidate
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		name, err := normalizeArchiveEntryPath(opts.Prefix + "/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		candidates = append(candidates, candidate{name: name, path: path, size: info.Size()})
		return nil
	})
	if walkErr != nil {
		return 0, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].name < candidates[j].name
	})

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		compress := shouldCompressImport(opts, matcher, c.name, c.size)
		if _, err := a.Import(c.name, c.path, compress); err != nil {
			return i, fmt.Errorf("import %s: %w", c.path, err)
		}
	}

	return len(candidates), nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ResolveDestinationPath maps entry id to a file path under root and creates its parent directories.
func (a *Archive) ResolveDestinationPath(id uint32, root string) (string, error) {
	e := a.FindByID(id)
	if e == nil {
		return "", fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}

	return resolveEntryDestination(e, root)
}

// resolveEntryDestination joins the sanitized entry name to root and creates parents.
func resolveEntryDestination(e *Entry, root string) (string, error) {
	rel, err := normalizeExtractEntryPath(e.Name)
	if err != nil {
		return "", fmt.Errorf("entry %d %q: %w", e.ID, e.Name, err)
	}

	outPath := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return "", fmt.Errorf("create output directory for %s: %w", e.Name, err)
	}

	return outPath, nil
}

// Dump writes stored payload bytes of entry id verbatim under root.
func (a *Archive) Dump(id uint32, root string) (string, int64, error) {
	return a.extractByID(id, root, true)
}

// Extract writes decoded payload of entry id under root.
// Uncompressed entries are written the same as Dump.
func (a *Archive) Extract(id uint32, root string) (string, int64, error) {
	return a.extractByID(id, root, false)
}

// extractByID resolves entry id and writes it under root.
func (a *Archive) extractByID(id uint32, root string, raw bool) (string, int64, error) {
	e := a.FindByID(id)
	if e == nil {
		return "", 0, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}

	buf, release := acquireCopyBuffer()
	defer release()

	return a.extractEntry(e, root, raw, buf)
}

// extractEntry creates destination file for e and streams its payload into it.
func (a *Archive) extractEntry(e *Entry, root string, raw bool, buf []byte) (string, int64, error) {
	src, err := a.storedSource(e)
	if err != nil {
		return "", 0, err
	}

	outPath, err := resolveEntryDestination(e, root)
	if err != nil {
		return "", 0, err
	}

	file, err := os.Create(outPath) //nolint:gosec // path is sanitized by resolveEntryDestination
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", outPath, err)
	}

	var written int64
	if raw || !e.Compressed {
		written, err = copyRange(file, src, e.origin, int64(e.StoredSize()), buf)
	} else {
		written, err = decodeEntry(file, src, e)
	}

	closeErr := file.Close()
	if err != nil {
		return outPath, written, fmt.Errorf("write %s: %w", e.Name, err)
	}

	if closeErr != nil {
		return outPath, written, fmt.Errorf("close %s: %w", e.Name, closeErr)
	}

	return outPath, written, nil
}

// decodeEntry decompresses stored payload of e from src into dst.
func decodeEntry(dst io.Writer, src io.ReaderAt, e *Entry) (int64, error) {
	if e.codec == nil {
		return 0, ErrNilCodec
	}

	sr := io.NewSectionReader(src, e.origin, int64(e.CompSize))
	written, err := e.codec.Decompress(dst, sr)
	if err != nil {
		return written, err
	}

	if written != int64(e.Size) {
		return written, fmt.Errorf("%w: decoded %d bytes, descriptor says %d", ErrDecompression, written, e.Size)
	}

	return written, nil
}

// storedSource returns the stream holding the stored payload of e.
func (a *Archive) storedSource(e *Entry) (io.ReaderAt, error) {
	if e.origin < 0 {
		return nil, fmt.Errorf("%w: entry %d %q", ErrEntryPending, e.ID, e.Name)
	}

	return a.source()
}

// OpenEntry returns a reader of decoded payload of entry id.
func (a *Archive) OpenEntry(id uint32) (io.ReadCloser, error) {
	e := a.FindByID(id)
	if e == nil {
		return nil, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}

	src, err := a.storedSource(e)
	if err != nil {
		return nil, err
	}

	if !e.Compressed {
		return io.NopCloser(io.NewSectionReader(src, e.origin, int64(e.Size))), nil
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := decodeEntry(pw, src, e)
		_ = pw.CloseWithError(err)
	}()

	return pr, nil
}

// ReadEntry returns decoded payload of entry id.
func (a *Archive) ReadEntry(id uint32) ([]byte, error) {
	e := a.FindByID(id)
	if e == nil {
		return nil, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}

	src, err := a.storedSource(e)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(int(e.Size))
	if !e.Compressed {
		if _, err := copyRange(&out, src, e.origin, int64(e.Size), nil); err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name, err)
		}

		return out.Bytes(), nil
	}

	if _, err := decodeEntry(&out, src, e); err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Name, err)
	}

	return out.Bytes(), nil
}

// ExtractAll writes selected entries under root in descriptor order and
// returns the first error. Pending imports are skipped.
func (a *Archive) ExtractAll(ctx context.Context, root string, opts ExtractOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := newRuleMatcher(opts.Include, opts.IncludeMatcherOptions)
	if err != nil {
		return fmt.Errorf("compile include rules: %w", err)
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	buf, release := acquireCopyBuffer()
	defer release()

	for _, e := range a.entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.origin < 0 {
			a.log.Debug("skip pending entry", slog.Uint64("id", uint64(e.ID)), slog.String("name", e.Name))
			continue
		}

		if matcher != nil && !matcher.Match(e.Name) {
			continue
		}

		outPath, written, err := a.extractEntry(e, root, opts.Raw, buf)
		if err != nil {
			return err
		}

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(e.Info(a.metadataOffset), written, outPath)
		}
	}

	return nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"
)

// defaultRebuildWriterPool reuses default-sized bufio writers between Rebuild calls.
var defaultRebuildWriterPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
	},
}

// Layout is a fully resolved rebuild: serialized metadata plus the ordered
// payload segments that follow it. Nothing is written while it is built.
type Layout struct {
	// Entries are descriptors as they will be written, with absolute offsets.
	Entries []EntryInfo
	// MetadataOffset is header plus descriptor table size.
	MetadataOffset int64
	// Size is total output size in bytes.
	Size int64

	metadata []byte
	slots    []descriptorSlot
	segments []payloadSegment

	copied     int
	imported   int
	compressed int
}

// descriptorSlot locates the late-bound fields of one descriptor in metadata.
type descriptorSlot struct {
	offsetPos   int
	compSizePos int
	relOffset   uint32
	compSize    uint32
}

// payloadSegment is one entry payload in output order.
// Exactly one of src, path or spool supplies the bytes.
type payloadSegment struct {
	src    io.ReaderAt
	path   string
	spool  []byte
	offset int64
	length int64
}

// Plan computes the final position of every entry without writing anything.
//
// Carried-over payloads are referenced by their origin in the source, raw
// imports by file path, and compressed imports are compressed into memory
// with the codec table patched in place.
func (a *Archive) Plan(ctx context.Context) (*Layout, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	metadataOffset := TheoreticalMetadataOffset(len(a.entries))
	if metadataOffset >= maxPACData {
		return nil, fmt.Errorf("%w: descriptor table ends at %d", ErrSizeOverflow, metadataOffset)
	}

	layout := &Layout{
		MetadataOffset: metadataOffset,
		metadata:       make([]byte, metadataOffset),
		slots:          make([]descriptorSlot, len(a.entries)),
		segments:       make([]payloadSegment, len(a.entries)),
		Entries:        make([]EntryInfo, len(a.entries)),
	}

	header := a.header
	header.FileCount = uint32(len(a.entries)) //nolint:gosec // bounded by Append
	if err := header.EncodeTo(layout.metadata[:HeaderSize]); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	// Descriptors go in with zero offset and stored size; both are resolved below.
	for i, e := range a.entries {
		base := HeaderSize + i*DescriptorSize
		if err := e.encodeDescriptor(layout.metadata[base:base+DescriptorSize], 0, 0); err != nil {
			return nil, err
		}

		layout.slots[i] = descriptorSlot{
			offsetPos:   base + descOffsetOffset,
			compSizePos: base + descCompSizeOffset,
		}
	}

	var cursor int64
	for i, e := range a.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seg, compSize, err := a.planPayload(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d %q: %w", e.ID, e.Name, err)
		}

		if cursor > math.MaxUint32 || metadataOffset+cursor+seg.length > maxPACData {
			return nil, fmt.Errorf("%w: entry %d %q at %d", ErrSizeOverflow, e.ID, e.Name, metadataOffset+cursor)
		}

		layout.slots[i].relOffset = uint32(cursor) //nolint:gosec // checked above
		layout.slots[i].compSize = compSize
		layout.segments[i] = seg
		layout.Entries[i] = EntryInfo{
			ID:         e.ID,
			Name:       e.Name,
			Offset:     metadataOffset + cursor,
			Size:       e.Size,
			CompSize:   compSize,
			Compressed: e.Compressed,
		}

		cursor += seg.length
	}

	layout.resolve()
	layout.Size = metadataOffset + cursor

	a.log.Debug("rebuild planned",
		slog.Int("entries", len(a.entries)),
		slog.Int64("metadata_offset", metadataOffset),
		slog.Int64("size", layout.Size),
		slog.Int("copied", layout.copied),
		slog.Int("imported", layout.imported),
		slog.Int("compressed", layout.compressed),
	)

	return layout, nil
}

// planPayload returns the payload segment of e and the stored size its descriptor carries.
func (a *Archive) planPayload(e *Entry) (payloadSegment, uint32, error) {
	if !e.IsImported() {
		src, err := a.storedSource(e)
		if err != nil {
			return payloadSegment{}, 0, err
		}

		return payloadSegment{src: src, offset: e.origin, length: int64(e.StoredSize())}, e.CompSize, nil
	}

	info, err := os.Stat(e.importSource)
	if err != nil {
		return payloadSegment{}, 0, fmt.Errorf("stat import %s: %w", e.importSource, err)
	}

	if info.Size() != int64(e.Size) {
		return payloadSegment{}, 0, fmt.Errorf(
			"%w: %s is %d bytes, staged %d",
			ErrImportChanged, e.importSource, info.Size(), e.Size,
		)
	}

	if !e.Compressed {
		return payloadSegment{path: e.importSource, length: int64(e.Size)}, e.Size, nil
	}

	spool, err := compressImport(e)
	if err != nil {
		return payloadSegment{}, 0, err
	}

	if int64(len(spool)) > math.MaxUint32 {
		return payloadSegment{}, 0, fmt.Errorf("%w: compressed payload is %d bytes", ErrSizeOverflow, len(spool))
	}

	return payloadSegment{spool: spool, length: int64(len(spool))}, uint32(len(spool)), nil //nolint:gosec // checked above
}

// compressImport runs the entry codec over its import source and applies the returned patch.
func compressImport(e *Entry) ([]byte, error) {
	if e.codec == nil {
		return nil, ErrNilCodec
	}

	f, err := os.Open(e.importSource)
	if err != nil {
		return nil, fmt.Errorf("open import %s: %w", e.importSource, err)
	}
	defer func() { _ = f.Close() }()

	var spool bytes.Buffer
	src := &countingReader{r: f}
	patch, err := e.codec.Compress(&spool, src)
	if err != nil {
		return nil, fmt.Errorf("compress %s: %w", e.importSource, err)
	}

	if src.n != int64(e.Size) {
		return nil, fmt.Errorf("%w: read %d bytes from %s, staged %d", ErrImportChanged, src.n, e.importSource, e.Size)
	}

	out := spool.Bytes()
	if err := patch.Apply(out); err != nil {
		return nil, fmt.Errorf("patch %s: %w", e.importSource, err)
	}

	return out, nil
}

// resolve writes late-bound descriptor fields into metadata and counts payload kinds.
func (l *Layout) resolve() {
	for i, slot := range l.slots {
		binary.LittleEndian.PutUint32(l.metadata[slot.offsetPos:], slot.relOffset)
		binary.LittleEndian.PutUint32(l.metadata[slot.compSizePos:], slot.compSize)

		seg := l.segments[i]
		switch {
		case seg.src != nil:
			l.copied++
		case l.Entries[i].Compressed:
			l.imported++
			l.compressed++
		default:
			l.imported++
		}
	}
}

// Metadata returns a copy of the serialized header and descriptor table.
func (l *Layout) Metadata() []byte {
	return bytes.Clone(l.metadata)
}

// writeTo serializes metadata then payloads in one forward pass.
func (l *Layout) writeTo(ctx context.Context, w io.Writer) (int64, error) {
	n, err := w.Write(l.metadata)
	written := int64(n)
	if err != nil {
		return written, fmt.Errorf("write metadata: %w", err)
	}

	buf, release := acquireCopyBuffer()
	defer release()

	for i, seg := range l.segments {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := seg.writeTo(w, buf)
		written += n
		if err != nil {
			info := l.Entries[i]
			return written, fmt.Errorf("write entry %d %q: %w", info.ID, info.Name, err)
		}
	}

	return written, nil
}

// writeTo copies the segment bytes to w.
func (s payloadSegment) writeTo(w io.Writer, buf []byte) (int64, error) {
	switch {
	case s.src != nil:
		return copyRange(w, s.src, s.offset, s.length, buf)
	case s.path != "":
		f, err := os.Open(s.path)
		if err != nil {
			return 0, fmt.Errorf("open import %s: %w", s.path, err)
		}
		defer func() { _ = f.Close() }()

		n, err := copyExact(w, f, s.length, buf)
		if err != nil {
			return n, fmt.Errorf("%w: %s: %w", ErrImportChanged, s.path, err)
		}

		return n, nil
	default:
		n, err := w.Write(s.spool)
		return int64(n), err
	}
}

// RebuildTo plans the archive and writes the result to w.
// The in-memory archive is left untouched.
func (a *Archive) RebuildTo(ctx context.Context, w io.Writer) (*RebuildResult, error) {
	startedAt := time.Now()

	if w == nil {
		return nil, ErrNilWriter
	}

	if ctx == nil {
		ctx = context.Background()
	}

	layout, err := a.Plan(ctx)
	if err != nil {
		return nil, err
	}

	written, err := layout.writeTo(ctx, w)
	if err != nil {
		return nil, err
	}

	if written != layout.Size {
		return nil, fmt.Errorf("%w: wrote %d bytes, planned %d", io.ErrShortWrite, written, layout.Size)
	}

	return &RebuildResult{
		Entries:           layout.Entries,
		MetadataOffset:    layout.MetadataOffset,
		Size:              layout.Size,
		CopiedEntries:     layout.copied,
		ImportedEntries:   layout.imported,
		CompressedEntries: layout.compressed,
		Duration:          time.Since(startedAt),
	}, nil
}

// Rebuild writes the archive to outPath. The output must not be the source
// archive; a failure leaves the partial file in place.
func (a *Archive) Rebuild(ctx context.Context, outPath string) (*RebuildResult, error) {
	if err := a.checkNotSource(outPath); err != nil {
		return nil, err
	}

	f, err := os.Create(outPath) //nolint:gosec // caller-selected output path
	if err != nil {
		return nil, fmt.Errorf("create PAC file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	w, releaseWriter := acquireRebuildWriter(f, a.opts.WriterBufferSize)
	defer releaseWriter()

	res, err := a.RebuildTo(ctx, w)
	if err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush PAC file: %w", err)
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync PAC file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close PAC file: %w", err)
	}
	f = nil

	a.log.Debug("archive rebuilt",
		slog.String("path", outPath),
		slog.Int64("size", res.Size),
		slog.Int("entries", len(res.Entries)),
		slog.Duration("duration", res.Duration),
	)

	return res, nil
}

// checkNotSource rejects an output path that resolves to the opened source file.
func (a *Archive) checkNotSource(outPath string) error {
	if a.file == nil {
		return nil
	}

	if _, err := a.source(); err != nil {
		return err
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		return nil //nolint:nilerr // missing output cannot be the source
	}

	srcInfo, err := a.file.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	if os.SameFile(outInfo, srcInfo) {
		return fmt.Errorf("%w: %s", ErrSameFile, outPath)
	}

	return nil
}

// acquireRebuildWriter returns a buffered writer and release callback for Rebuild.
func acquireRebuildWriter(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultRebuildWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultRebuildWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// countingReader counts bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

// Read implements io.Reader.
func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

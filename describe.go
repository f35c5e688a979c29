// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// chunkTabler is implemented by codecs that expose their chunk table.
type chunkTabler interface {
	Table() ChunkTable
}

// Describe writes a human-readable listing of the archive to w.
// With detail, compressed entries are followed by their chunk table.
func (a *Archive) Describe(w io.Writer, detail bool) error {
	if w == nil {
		return ErrNilWriter
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Metadata size: %06x\n", a.metadataOffset)
	fmt.Fprintf(tw, "Header (%s) file count: %d\n", a.header.Tag, a.header.FileCount)
	fmt.Fprintln(tw, "id\toffset\tsize\tcompressed\tcomp size\t\tname")

	for _, e := range a.entries {
		compressed := "no"
		if e.Compressed {
			compressed = "yes"
		}

		fmt.Fprintf(tw, "%03d\t%08x\t%d\t%s\t%d\t\t%s\n",
			e.ID, e.Offset(a.metadataOffset), e.Size, compressed, e.CompSize, e.Name)

		if !detail || !e.Compressed {
			continue
		}

		tabler, ok := e.codec.(chunkTabler)
		if !ok {
			continue
		}

		t := tabler.Table()
		if e.IsImported() {
			fmt.Fprintf(tw, "\tpending\t%d chunks reserved\t\t\t\t\n", expectedChunkCount(e.Size, uint32(e.codec.ChunkSize()))) //nolint:gosec // bounded chunk size
			continue
		}

		fmt.Fprintf(tw, "\t%s\t%d x %d\t\t%d\t\t\n", t.Method, len(t.ChunkSizes), t.ChunkSize, t.UncompressedSize)
		for i, size := range t.ChunkSizes {
			fmt.Fprintf(tw, "\tchunk %d\t%d\t\t%d\t\t\n", i, t.chunkLen(i), size)
		}
	}

	return tw.Flush()
}

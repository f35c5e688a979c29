// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

/*
Package pac reads, extracts, appends to and rebuilds PAC archives.

A PAC file is a fixed 20-byte header (8-byte ASCII tag and the entry count),
a table of 288-byte descriptors and the payloads. Descriptor offsets are
relative to the end of the descriptor table, so appending an entry moves every
absolute payload position by one descriptor while stored offsets stay the same.

Compressed payloads start with a chunk table: method, chunk size, chunk count,
uncompressed size and the stored size of every chunk. Chunks are compressed
independently with LZSS, zstd or LZ4; a chunk that does not shrink is stored raw.

# Reading

	a, err := pac.Open("data.pac", pac.Options{})
	if err != nil {
	    return err
	}
	defer a.Close()
	for _, info := range a.Infos() {
	    data, _ := a.ReadEntry(info.ID)
	    // use data
	}

For metadata-only scans:

	entries, err := pac.ListEntries("data.pac")

# Extracting

Dump writes stored bytes, Extract decodes compressed entries:

	path, n, err := a.Extract(3, "out/")

Extract everything matching include rules from github.com/woozymasta/pathrules:

	err := a.ExtractAll(ctx, "out/", pac.ExtractOptions{
	    Include: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "textures/**"},
	    },
	})

# Rebuilding

Imports are staged in memory and only read on rebuild. Carried-over entries
are copied from the source archive:

	if _, err := a.Import(`scripts\main.lua`, "main.lua", true); err != nil {
	    return err
	}
	res, err := a.Rebuild(ctx, "data.new.pac")

Plan computes the final layout without writing anything:

	layout, err := a.Plan(ctx)
	_ = layout.Size
*/
package pac

// Package sng compiles SNG, a human-readable textual notation for PNG
// images, into the binary PNG format.
//
// An SNG source is a sequence of named chunk blocks:
//
//	IHDR { height 2 width 2 using color }
//	# comments run to end of line
//	IMAGE {
//	  00FF00 FF0000
//	  0000FF FFFFFF
//	}
//
// Compile tokenizes the source, dispatches each chunk keyword through a
// table-driven grammar with per-chunk ordering guards, accumulates an
// image description, and drives a Backend that performs the actual
// binary framing, checksumming, and compression (see pkg/png).
//
// Basic usage:
//
//	f, _ := os.Create("out.png")
//	defer f.Close()
//	if err := sng.Compile(src, "drawing.sng", png.NewWriter(f)); err != nil {
//		log.Fatal(err) // "drawing.sng:3: missing chunk delimiter"
//	}
//
// Every failure is fatal to the compile and carries the source name and
// line. Backend failures are distinguishable via IsBackend; bytes
// already flushed before a failure are not rolled back, so partial
// output must be discarded.
package sng

import (
	"fmt"
	"os"
	"path/filepath"
)

// CompileFile compiles the SNG source at path, labeling diagnostics with
// the file's base name.
func CompileFile(path string, out Backend) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()
	return Compile(f, filepath.Base(path), out)
}

// Extension returns the conventional SNG file extension.
func Extension() string {
	return ".sng"
}

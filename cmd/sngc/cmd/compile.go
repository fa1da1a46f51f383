package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jpfielding/sng.go/pkg/png"
	"github.com/jpfielding/sng.go/pkg/sng"
	"github.com/jpfielding/sng.go/pkg/util"
	"github.com/spf13/cobra"
)

// NewCompileCmd creates the compile cobra command
func NewCompileCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "compile an SNG source to a PNG stream",
		Long:  "Reads SNG chunk specifications and writes the compiled PNG. Defaults to stdin/stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, _ := cmd.Flags().GetString("in")
			outPath, _ := cmd.Flags().GetString("out")

			if inPath == "" && len(args) > 0 {
				inPath = args[0]
			}

			return runCompile(ctx, inPath, outPath)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("in", "i", "", "SNG source path (default stdin)")
	pf.StringP("out", "o", "", "PNG output path (default stdout)")

	return cmd
}

func runCompile(ctx context.Context, inPath, outPath string) error {
	var in io.Reader = os.Stdin
	name := "stdin"
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
		name = inPath
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	backend := png.NewWriter(out)
	log := slog.With("compile_id", util.CompileID(), "source", name)
	if err := sng.Compile(in, name, backend); err != nil {
		// partial output is unusable; the caller must discard it
		log.ErrorContext(ctx, "compile failed", "error", err, "bytes_flushed", backend.Bytes())
		return err
	}
	log.InfoContext(ctx, "compile finished", "bytes", backend.Bytes())
	return nil
}

// Command pdfhtml converts every PDF in a directory to an HTML page and
// merges the PDFs into Combined.pdf.
//
// Usage:
//
//	pdfhtml [flags] <directory>
//
// Each input.pdf becomes input.html next to it. Files that cannot be read
// are reported and skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/tsawler/pdfhtml/batch"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("pdfhtml", flag.ContinueOnError)
	flags.SetOutput(stderr)
	workers := flags.Int("workers", 0, "files converted at once (default: number of CPUs)")
	timeout := flags.Duration("timeout", batch.DefaultTimeout, "time limit per file, 0 for none")
	password := flags.String("p", "", "password for encrypted files")
	askPassword := flags.Bool("ask-password", false, "prompt for the password")
	ocrLang := flags.String("ocr", "", "recognize scanned pages in these Tesseract `languages`, e.g. eng+por")
	noMerge := flags.Bool("no-merge", false, "do not write "+batch.CombinedName)
	verbose := flags.Bool("v", false, "log progress")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: pdfhtml [flags] <directory>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}
	dir := flags.Arg(0)

	if *askPassword {
		pw, err := readPassword(stderr)
		if err != nil {
			fmt.Fprintln(stderr, "pdfhtml:", err)
			return 1
		}
		*password = pw
	}

	opts := []batch.Option{
		batch.WithLogger(newLogger(stderr, *verbose)),
		batch.WithTimeout(*timeout),
		batch.WithMerge(!*noMerge),
	}
	if *workers > 0 {
		opts = append(opts, batch.WithWorkers(*workers))
	}
	if *password != "" {
		opts = append(opts, batch.WithPassword(*password))
	}
	if *ocrLang != "" {
		opts = append(opts, batch.WithOCR(*ocrLang))
	}

	start := time.Now()
	summary, err := batch.Run(ctx, dir, opts...)
	if summary != nil {
		for _, o := range summary.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(stderr, "error: %s: %v\n", o.Input, o.Err)
				continue
			}
			fmt.Fprintf(stdout, "converted: %s\n", o.Input)
		}
		if summary.MergeErr != nil {
			fmt.Fprintf(stderr, "error: %v\n", summary.MergeErr)
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, "pdfhtml:", err)
		return 1
	}
	fmt.Fprintf(stdout, "done: %s in %s\n", summary, time.Since(start).Round(time.Millisecond))
	return 0
}

// newLogger logs warnings and errors to w, and progress as well when
// verbose. Output is text on a terminal and JSON otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelInfo
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func readPassword(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("-ask-password needs a terminal")
	}
	fmt.Fprint(prompt, "password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

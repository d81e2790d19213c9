// Command ensdescribe prints wgrib2-style inventory lines for GRIB record
// documents. Input is JSON lines, one record per line, read from the named
// files or from stdin. Correction diagnostics go to stderr.
//
// Usage:
//
//	ensdescribe records.jsonl
//	ensdescribe --style wgrib2 < records.jsonl
//	ensdescribe --json a.jsonl b.jsonl
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
)

// maxLineSize bounds a single JSON record line.
const maxLineSize = 1 << 20

type options struct {
	style    string
	jsonOut  bool
	logLevel string
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ensdescribe [file...]",
		Short: "Label GRIB2 ensemble metadata as inventory lines",
		Long: `Reads GRIB record documents (JSON lines) and prints one inventory line per
record, including the decoded ensemble type, derived forecast type and
number of ensemble members.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args, stdin, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().StringVar(&opts.style, "style", string(domain.StyleDescriptive), "label style: descriptive or wgrib2")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print inventory lines as JSON documents")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "diagnostic log level")

	return cmd
}

func run(opts *options, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	style, err := domain.ParseLabelStyle(opts.style)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	decoder := domain.NewDecoder(style, logger)

	out := bufio.NewWriter(stdout)

	var failed int
	describe := func(name string, r io.Reader) error {
		n, err := describeStream(decoder, name, r, out, opts.jsonOut, logger)
		failed += n
		return err
	}

	if err := describeAll(args, stdin, describe); err != nil {
		_ = out.Flush()
		return err
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d records could not be parsed", failed)
	}
	return nil
}

func describeAll(args []string, stdin io.Reader, describe func(string, io.Reader) error) error {
	if len(args) == 0 {
		return describe("stdin", stdin)
	}
	for _, path := range args {
		if err := describeFile(path, describe); err != nil {
			return err
		}
	}
	return nil
}

func describeFile(path string, describe func(string, io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return describe(path, f)
}

// describeStream writes one inventory line per record in r and returns the
// number of lines that failed to parse.
func describeStream(decoder *domain.Decoder, name string, r io.Reader, w io.Writer, jsonOut bool, logger *slog.Logger) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var failed, lineNum int
	for scanner.Scan() {
		lineNum++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		rec, err := domain.ParseRawEvent(domain.RawEvent{Value: data})
		if err != nil {
			logger.Error("skipping record", "source", name, "line", lineNum, "error", err)
			failed++
			continue
		}

		line, _ := domain.BuildInventoryLine(decoder, rec)
		text := line.Inventory
		if jsonOut {
			b, err := json.Marshal(line)
			if err != nil {
				return failed, fmt.Errorf("%s:%d: %w", name, lineNum, err)
			}
			text = string(b)
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return failed, fmt.Errorf("write output: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return failed, fmt.Errorf("read %s: %w", name, err)
	}
	return failed, nil
}

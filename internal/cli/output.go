package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"golang.org/x/term"

	"github.com/macropower/reap/pkg/task"
	"github.com/macropower/reap/pkg/torrent"
	"github.com/macropower/reap/pkg/yaml"
)

// OutputFormat selects how a [task.Report] is printed.
type OutputFormat string

const (
	OutputAuto OutputFormat = "auto"
	OutputText OutputFormat = "text"
	OutputYAML OutputFormat = "yaml"
	OutputJSON OutputFormat = "json"
)

var (
	ErrInvalidArgs   = errors.New("invalid argument")
	ErrUnknownOutput = errors.New("unknown output format")
	ErrEvaluation    = errors.New("evaluation failed")
	AllOutputFormats = []string{string(OutputAuto), string(OutputText), string(OutputYAML), string(OutputJSON)}
)

// textOutputMaxNames limits the removed torrents listed by [OutputText].
const textOutputMaxNames = 20

// GetOutputFormat parses format. [OutputAuto] becomes [OutputText] when w is
// a terminal and [OutputYAML] otherwise.
func GetOutputFormat(format string, w io.Writer) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(format)); f {
	case OutputText, OutputYAML, OutputJSON:
		return f, nil
	case OutputAuto, "":
		if isTerminal(w) {
			return OutputText, nil
		}

		return OutputYAML, nil
	}

	return "", fmt.Errorf("%w: %w %q", ErrInvalidArgs, ErrUnknownOutput, format)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	//nolint:gosec // G115: file descriptors fit in an int.
	return term.IsTerminal(int(f.Fd()))
}

// WriteReport writes report to w. snap is used to describe torrents in
// [OutputText].
func WriteReport(w io.Writer, format OutputFormat, report *task.Report, snap *torrent.Snapshot) error {
	var err error

	switch format {
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		err = enc.Encode(report)
		if err == nil {
			err = enc.Close()
		}

	case OutputJSON:
		enc := yaml.NewJSONEncoder(w)
		err = enc.Encode(report)
		if err == nil {
			err = enc.Close()
		}

	default:
		err = writeText(w, report, snap)
	}

	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func writeText(w io.Writer, report *task.Report, snap *torrent.Snapshot) error {
	b := &strings.Builder{}

	fmt.Fprintf(b, "Snapshot taken %s, %d torrents\n\n",
		humanize.Time(time.Unix(report.TakenAt, 0)), snap.Len())

	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(b, "✗ %s: %s\n", o.Strategy, o.Error)
			continue
		}

		fmt.Fprintf(b, "✓ %s (%s): remove %s, keep %s",
			o.Strategy, o.Path, humanize.Comma(int64(len(o.Remove))), humanize.Comma(int64(len(o.Remain))))

		if o.DeleteData {
			b.WriteString(", deleting data")
		}

		b.WriteString("\n")
	}

	remove := report.Remove
	fmt.Fprintf(b, "\n%s to remove, freeing %s",
		english.Plural(len(remove), "torrent", ""), humanize.IBytes(sizeOf(snap, report.DeleteData)))

	if len(report.DeleteData) > 0 {
		fmt.Fprintf(b, " (data of %s deleted)", english.Plural(len(report.DeleteData), "torrent", ""))
	}

	b.WriteString("\n")

	for i, hash := range remove {
		if i == textOutputMaxNames {
			fmt.Fprintf(b, "  … and %s more\n", humanize.Comma(int64(len(remove)-i)))
			break
		}

		fmt.Fprintf(b, "  %s\n", describe(snap, hash))
	}

	_, err := io.WriteString(w, b.String())

	return err //nolint:wrapcheck // Wrapped by WriteReport.
}

func describe(snap *torrent.Snapshot, hash string) string {
	t, ok := snap.Get(hash)
	if !ok || t.Name == "" {
		return hash
	}

	return fmt.Sprintf("%s  %s (%s, ratio %s)", hash, t.Name,
		humanize.IBytes(uint64(max(t.Size, 0))), humanize.FtoaWithDigits(t.Ratio, 2))
}

// sizeOf sums the sizes of the given torrents.
func sizeOf(snap *torrent.Snapshot, hashes []string) uint64 {
	var total uint64

	for _, h := range hashes {
		if t, ok := snap.Get(h); ok && t.Size > 0 {
			total += uint64(t.Size)
		}
	}

	return total
}

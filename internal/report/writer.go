// Package report renders analysis results as plain-text, comma-separated
// files, one result per file.
package report

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/followledger/followledger/internal/models"
)

// File names written by Writer. Names containing %s take the subject.
const (
	NotReciprocatedFile = "people_not_following_%s.csv"
	LedgerFile          = "all_the_people_%s_has_followed.csv"
	DailyFollowersFile  = "new_followers_each_day.csv"
	MonthlySeriesFile   = "follower_count_by_month.csv"
)

// Writer writes reports into a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter constructs a Writer targeting dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger}
}

// WriteReport writes all four report files. Each file is replaced atomically.
func (w *Writer) WriteReport(r models.Report) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	subject := fileSafe(r.Subject)
	files := []struct {
		name  string
		lines []fmt.Stringer
	}{
		{fmt.Sprintf(NotReciprocatedFile, subject), stringers(r.NotReciprocated)},
		{fmt.Sprintf(LedgerFile, subject), stringers(r.Ledger)},
		{DailyFollowersFile, stringers(r.DailyFollowers)},
		{MonthlySeriesFile, stringers(r.Monthly)},
	}
	for _, f := range files {
		path := filepath.Join(w.dir, f.name)
		if err := writeLines(path, f.lines); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		w.logger.Debug("report file written", slog.String("path", path), slog.Int("lines", len(f.lines)))
	}
	return nil
}

func stringers[T fmt.Stringer](rows []T) []fmt.Stringer {
	out := make([]fmt.Stringer, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

func writeLines(path string, lines []fmt.Stringer) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err = buf.WriteString(line.String() + "\n"); err != nil {
			return err
		}
	}
	if err = buf.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// fileSafe keeps a subject usable inside a file name.
func fileSafe(subject string) string {
	if subject == "" {
		return "subject"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == os.PathSeparator:
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, subject)
}

package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"duobudget/internal/importer"
	"duobudget/internal/sheets"
)

// Store serves spreadsheets from memory. Each spreadsheet holds one grid;
// ranges are ignored.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

var (
	_ sheets.RowReader   = (*Store)(nil)
	_ sheets.RowAppender = (*Store)(nil)
)

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

// NewFromDir loads every .csv file of base as a spreadsheet whose id is the
// file name without extension. Unreadable files are skipped.
func NewFromDir(base string) *Store {
	s := New()
	files, _ := filepath.Glob(filepath.Join(base, "*.csv"))
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		rows, err := importer.ReadCSV(f)
		f.Close()
		if err != nil {
			continue
		}
		s.Put(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), rows)
	}
	return s
}

// Put replaces the grid of a spreadsheet.
func (s *Store) Put(spreadsheetID string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[spreadsheetID] = copyRows(rows)
}

func (s *Store) ReadRows(_ context.Context, spreadsheetID, _ string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %q not found", spreadsheetID)
	}
	return copyRows(rows), nil
}

// AppendRows adds rows to the end of the grid and returns a synthetic
// reference.
func (s *Store) AppendRows(_ context.Context, spreadsheetID, _ string, rows [][]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.sheets[spreadsheetID]) + 1
	s.sheets[spreadsheetID] = append(s.sheets[spreadsheetID], copyRows(rows)...)
	return fmt.Sprintf("mem:%s!%d:%d", spreadsheetID, start, start+len(rows)-1), nil
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}

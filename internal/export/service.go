package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
)

const (
	StatusSheet  = "Status"
	HistorySheet = "History"
	// Pending marks listed documents without any ledger row.
	Pending = "Pending"
)

// Service produces XLSX bytes for status exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportLedgerXLSX returns a workbook with one Status row per document found
// in the listing or the ledger, and every ledger row on the History sheet in
// file order.
func (s *Service) ExportLedgerXLSX(history *ledger.History, listing []string) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", StatusSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(HistorySheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(StatusSheet)
	f.SetActiveSheet(activeIndex)

	docs := s.writeStatus(f, history, listing)
	rows := s.writeHistory(f, history)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", docs,
		"history_rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeStatus(f *excelize.File, history *ledger.History, listing []string) int {
	listed := make(map[string]bool, len(listing))
	for _, d := range listing {
		listed[d] = true
	}
	all := make(map[string]struct{}, len(listing))
	for _, d := range listing {
		all[d] = struct{}{}
	}
	for _, d := range history.Documents() {
		all[d] = struct{}{}
	}
	docs := make([]string, 0, len(all))
	for d := range all {
		docs = append(docs, d)
	}
	sort.Strings(docs)

	writeHeader(f, StatusSheet, "Document", "Listed", "Latest Status", "Processed At", "Attempts", "Artifact")
	row := 2
	for _, d := range docs {
		write := writer(f, StatusSheet, row)
		write(1, d)
		write(2, yesNo(listed[d]))
		if e, ok := history.Latest(d); ok {
			write(3, string(e.Outcome))
			write(4, e.Timestamp.Format(constants.LedgerTimeLayout))
			write(5, len(history.ByDocument(d)))
			write(6, e.ArtifactRef)
		} else {
			write(3, Pending)
			write(4, "")
			write(5, 0)
			write(6, constants.NoArtifact)
		}
		row++
	}

	_ = f.SetColWidth(StatusSheet, "A", "A", 36)
	_ = f.SetColWidth(StatusSheet, "B", "B", 8)
	_ = f.SetColWidth(StatusSheet, "C", "C", 14)
	_ = f.SetColWidth(StatusSheet, "D", "D", 20)
	_ = f.SetColWidth(StatusSheet, "E", "E", 10)
	_ = f.SetColWidth(StatusSheet, "F", "F", 36)
	return len(docs)
}

func (s *Service) writeHistory(f *excelize.File, history *ledger.History) int {
	writeHeader(f, HistorySheet, "Document", "Artifact", "Processed At", "Status")
	entries := history.Entries()
	for i, e := range entries {
		write := writer(f, HistorySheet, i+2)
		write(1, e.DocumentID)
		write(2, e.ArtifactRef)
		write(3, e.Timestamp.Format(constants.LedgerTimeLayout))
		write(4, string(e.Outcome))
	}
	_ = f.SetColWidth(HistorySheet, "A", "B", 36)
	_ = f.SetColWidth(HistorySheet, "C", "D", 20)
	return len(entries)
}

func writeHeader(f *excelize.File, sheet string, headers ...string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func writer(f *excelize.File, sheet string, row int) func(col int, v any) {
	return func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

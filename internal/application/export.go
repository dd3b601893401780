package application

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/joacominatel/yujo/internal/domain"
)

// utf8BOM makes spreadsheet apps detect the encoding of accented headers.
const utf8BOM = "\ufeff"

var exportHeader = []string{
	"Nombre", "Ministerio", "Capítulos", "Ayunos", "Almas",
	"Horas", "Minutos", "Altares Familiares", "Fecha",
}

// ExportCSV writes the selected reports as CSV, newest first.
// undated reports carry an empty Fecha column.
func (uc *ReportingUseCase) ExportCSV(ctx context.Context, input ListReportsInput, w io.Writer) (int, error) {
	reports, err := uc.ListReports(ctx, input)
	if err != nil {
		return 0, err
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	for _, r := range reports {
		if err := cw.Write(exportRow(r)); err != nil {
			return 0, fmt.Errorf("writing export: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}

	uc.logger.Info("reports exported",
		"congregation_id", input.CongregationID,
		"rows", len(reports),
	)
	return len(reports), nil
}

func exportRow(r domain.Report) []string {
	m := r.Metrics()
	altar := "0"
	if m.FamilyAltar {
		altar = "1"
	}
	return []string{
		r.MemberName(),
		r.Ministry(),
		strconv.Itoa(m.Chapters),
		strconv.Itoa(m.FastingDays),
		strconv.Itoa(m.SoulsReached),
		strconv.Itoa(m.PrayerHours),
		strconv.Itoa(m.PrayerMinutes),
		altar,
		r.Date().String(),
	}
}

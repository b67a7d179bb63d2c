// Package report exports ranked queues as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/okian/ordertriage/pkg/metrics"
	"github.com/xuri/excelize/v2"
)

// ContentType is the media type of Write's output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

//nolint:gochecknoglobals // fixed column layout per queue
var (
	evaluatorHeader = []interface{}{
		"Rank", "Pedido", "Numero", "Cliente", "Total", "Creado",
		"Minutos", "Prioridad", "Nivel", "Estado", "Excede limite",
	}
	supervisorHeader = []interface{}{
		"Rank", "Pedido", "Numero", "Cliente", "Total", "Escalado",
		"Minutos", "Urgencia", "Nivel", "Urgente",
	}
)

// SheetName returns the worksheet a role's queue is written to.
func SheetName(role types.Role) string {
	switch role {
	case types.RoleEvaluator:
		return "Pendientes"
	case types.RoleSupervisor:
		return "Escalados"
	default:
		return ""
	}
}

// Write renders entries, already ranked, as an .xlsx workbook to w.
// Timestamps are written in loc; nil means UTC.
func Write(w io.Writer, role types.Role, entries []types.Entry, loc *time.Location) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(role)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	header := evaluatorHeader
	if role == types.RoleSupervisor {
		header = supervisorHeader
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("header: %w", err)
	}

	for i := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row(role, &entries[i], loc)); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	metrics.RecordReportExported(string(role))
	return nil
}

func row(role types.Role, e *types.Entry, loc *time.Location) []interface{} {
	ref := ""
	if !e.Reference.IsZero() {
		ref = e.Reference.In(loc).Format("2006-01-02 15:04")
	}
	r := []interface{}{
		e.Rank, e.OrderID, e.Number, e.ClientName, e.Amount.InexactFloat64(), ref,
		e.ElapsedMinutes, e.Score, string(e.Level),
	}
	if role == types.RoleSupervisor {
		return append(r, yesNo(e.Urgent))
	}
	return append(r, string(e.Badge), yesNo(e.NeedsEscalation))
}

func yesNo(b bool) string {
	if b {
		return "si"
	}
	return "no"
}

package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04:05"

var exportHeader = []string{"Nama", "Kelas", "Waktu Mulai", "Waktu Selesai", "Status", "Pelanggaran", "Nilai"}

// ResultService reports and exports exam results to the owning teacher.
type ResultService struct {
	exams *ExamService
}

// NewResultService creates a new ResultService.
func NewResultService(exams *ExamService) *ResultService {
	return &ResultService{exams: exams}
}

// ExamResults lists every session of one of the teacher's exams.
func (s *ResultService) ExamResults(ctx context.Context, teacherID, examID uuid.UUID) ([]model.ExamSession, error) {
	return s.exams.Sessions(ctx, teacherID, examID)
}

// ExportCSV renders the results table as CSV.
func (s *ResultService) ExportCSV(ctx context.Context, teacherID, examID uuid.UUID) ([]byte, error) {
	sessions, err := s.ExamResults(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}
	return WriteResultsCSV(sessions)
}

// ExportXLSX renders the results table as an Excel workbook.
func (s *ResultService) ExportXLSX(ctx context.Context, teacherID, examID uuid.UUID) ([]byte, error) {
	sessions, err := s.ExamResults(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}
	return WriteResultsXLSX(sessions)
}

// WriteResultsCSV writes a header row and one row per session.
func WriteResultsCSV(sessions []model.ExamSession) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range sessions {
		if err := w.Write(resultRow(&sessions[i])); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteResultsXLSX writes the same table as WriteResultsCSV to a single sheet.
func WriteResultsXLSX(sessions []model.ExamSession) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Hasil"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := range sessions {
		row := resultRow(&sessions[i])
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		// Keep numeric columns numeric so the sheet can sort and sum them.
		cells[5] = sessions[i].ViolationsCount
		if sessions[i].FinalScore != nil {
			cells[6] = *sessions[i].FinalScore
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func resultRow(sess *model.ExamSession) []string {
	score := ""
	if sess.FinalScore != nil {
		score = strconv.FormatFloat(*sess.FinalScore, 'f', -1, 64)
	}
	return []string{
		sess.StudentName,
		sess.StudentClass,
		formatExportTime(&sess.StartedAt),
		formatExportTime(sess.SubmittedAt),
		string(sess.Status),
		strconv.Itoa(sess.ViolationsCount),
		score,
	}
}

func formatExportTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(exportTimeLayout)
}

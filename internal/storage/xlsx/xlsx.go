// Package xlsx implements the catalog store on a local spreadsheet
// file, the same shape the household has always kept its catalog in:
// one "Catálogo" sheet with per-profile read-state columns
// (favorito_<p>, veces_<p>, ultima_<p>) and a "Retos" sheet holding
// weekly challenge assignments.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"lecturas/internal/models"
)

const (
	catalogSheet    = "Catálogo"
	assignmentSheet = "Retos"
	timeLayout      = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

var catalogColumns = []string{
	"id", "titulo", "edad_min", "edad_max", "duracion_min",
	"ubicacion", "interactivo", "activa", "portada",
}

var assignmentColumns = []string{"perfil", "reto_id", "semana", "completado"}

// XlsxStore persists the catalog in an .xlsx workbook. The file is the
// whole database: reads load it fully and writes rewrite the affected
// sheet, so callers must re-read after writing. A process-wide mutex
// serializes access; concurrent edits from another device can still
// overwrite each other, which the design accepts for household use.
type XlsxStore struct {
	mu       sync.Mutex
	path     string
	profiles []string
	logger   *zap.Logger
}

// NewXlsxStore creates a store over the workbook at path for the given
// profile names
func NewXlsxStore(path string, profiles []string, logger *zap.Logger) *XlsxStore {
	return &XlsxStore{path: path, profiles: profiles, logger: logger}
}

// Initialize creates the workbook with empty sheets if it does not
// exist yet
func (s *XlsxStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat workbook: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", catalogSheet)
	for i, col := range s.headerRow() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(catalogSheet, cell, col)
	}

	if _, err := f.NewSheet(assignmentSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", assignmentSheet, err)
	}
	for i, col := range assignmentColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(assignmentSheet, cell, col)
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	s.logger.Info("Created catalog workbook", zap.String("path", s.path))
	return nil
}

// headerRow is the catalog header: fixed columns plus the three
// read-state columns per profile
func (s *XlsxStore) headerRow() []string {
	header := append([]string{}, catalogColumns...)
	for _, p := range s.profiles {
		lp := strings.ToLower(p)
		header = append(header, "favorito_"+lp, "veces_"+lp, "ultima_"+lp)
	}
	return header
}

// ReadCatalog loads every catalog row. Cell coercion is best-effort:
// a cell that fails to parse becomes the zero value (0, false, unset
// date) and is logged, so one hand-edited cell never fails the load.
func (s *XlsxStore) ReadCatalog(ctx context.Context) ([]models.BookRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(catalogSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", catalogSheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	colIdx := make(map[string]int)
	for i, name := range rows[0] {
		colIdx[strings.TrimSpace(name)] = i
	}

	var books []models.BookRecord
	for rowNum, row := range rows[1:] {
		get := func(col string) string {
			i, ok := colIdx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		if get("id") == "" && get("titulo") == "" {
			continue // trailing blank row
		}

		b := models.BookRecord{
			ID:          s.coerceInt(get("id"), "id", rowNum+2),
			Title:       get("titulo"),
			AgeMin:      s.coerceInt(get("edad_min"), "edad_min", rowNum+2),
			AgeMax:      s.coerceInt(get("edad_max"), "edad_max", rowNum+2),
			DurationMin: s.coerceInt(get("duracion_min"), "duracion_min", rowNum+2),
			Location:    get("ubicacion"),
			Interactive: coerceBool(get("interactivo")),
			Active:      coerceBool(get("activa")),
			CoverURL:    get("portada"),
		}
		for _, p := range s.profiles {
			lp := strings.ToLower(p)
			b.SetState(p, models.ReadState{
				Favorite:  coerceBool(get("favorito_" + lp)),
				TimesRead: s.coerceInt(get("veces_"+lp), "veces_"+lp, rowNum+2),
				LastRead:  s.coerceTime(get("ultima_"+lp), "ultima_"+lp, rowNum+2),
			})
		}
		books = append(books, b)
	}
	return books, nil
}

// WriteCatalog rewrites the catalog sheet with the given rows
func (s *XlsxStore) WriteCatalog(ctx context.Context, books []models.BookRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if err := s.writeCatalogSheet(f, books); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (s *XlsxStore) writeCatalogSheet(f *excelize.File, books []models.BookRecord) error {
	if err := f.DeleteSheet(catalogSheet); err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", catalogSheet, err)
	}
	if _, err := f.NewSheet(catalogSheet); err != nil {
		return fmt.Errorf("failed to recreate sheet %s: %w", catalogSheet, err)
	}

	for i, col := range s.headerRow() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(catalogSheet, cell, col)
	}

	for rowIdx, b := range books {
		values := []interface{}{
			b.ID, b.Title, b.AgeMin, b.AgeMax, b.DurationMin,
			b.Location, formatBool(b.Interactive), formatBool(b.Active), b.CoverURL,
		}
		for _, p := range s.profiles {
			rs := b.State(p)
			last := ""
			if !rs.LastRead.IsZero() {
				last = rs.LastRead.Format(timeLayout)
			}
			values = append(values, formatBool(rs.Favorite), rs.TimesRead, last)
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(catalogSheet, cell, v)
		}
	}
	return nil
}

// MarkRead updates the three read-state cells of one (book, profile)
// pair in place, leaving the rest of the sheet untouched
func (s *XlsxStore) MarkRead(ctx context.Context, bookID int, profile string, at time.Time) error {
	return s.updateRow(bookID, func(f *excelize.File, rowNum int, col func(string) (string, error)) error {
		lp := strings.ToLower(profile)

		vecesCell, err := col("veces_" + lp)
		if err != nil {
			return err
		}
		raw, _ := f.GetCellValue(catalogSheet, vecesCell)
		veces, _ := strconv.Atoi(strings.TrimSpace(raw))

		f.SetCellValue(catalogSheet, vecesCell, veces+1)

		ultimaCell, err := col("ultima_" + lp)
		if err != nil {
			return err
		}
		f.SetCellValue(catalogSheet, ultimaCell, at.Format(timeLayout))
		return nil
	})
}

// MarkFavorite sets the favorite cell of one (book, profile) pair
func (s *XlsxStore) MarkFavorite(ctx context.Context, bookID int, profile string) error {
	return s.updateRow(bookID, func(f *excelize.File, rowNum int, col func(string) (string, error)) error {
		cell, err := col("favorito_" + strings.ToLower(profile))
		if err != nil {
			return err
		}
		f.SetCellValue(catalogSheet, cell, "TRUE")
		return nil
	})
}

// updateRow locates the row whose id column matches bookID and hands
// the caller a cell locator scoped to that row
func (s *XlsxStore) updateRow(bookID int, update func(f *excelize.File, rowNum int, col func(string) (string, error)) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(catalogSheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", catalogSheet, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("sheet %s is empty", catalogSheet)
	}

	colIdx := make(map[string]int)
	for i, name := range rows[0] {
		colIdx[strings.TrimSpace(name)] = i
	}
	idCol, ok := colIdx["id"]
	if !ok {
		return fmt.Errorf("sheet %s has no id column", catalogSheet)
	}

	rowNum := 0
	for i, row := range rows[1:] {
		if idCol < len(row) {
			if id, err := strconv.Atoi(strings.TrimSpace(row[idCol])); err == nil && id == bookID {
				rowNum = i + 2
				break
			}
		}
	}
	if rowNum == 0 {
		return fmt.Errorf("book %d not found", bookID)
	}

	col := func(name string) (string, error) {
		i, ok := colIdx[name]
		if !ok {
			return "", fmt.Errorf("sheet %s has no column %s", catalogSheet, name)
		}
		return excelize.CoordinatesToCellName(i+1, rowNum)
	}

	if err := update(f, rowNum, col); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// GetAssignment returns the profile's assignment with the most recent
// week, if any
func (s *XlsxStore) GetAssignment(ctx context.Context, profile string) (models.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return models.Assignment{}, false, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(assignmentSheet)
	if err != nil {
		return models.Assignment{}, false, fmt.Errorf("failed to read sheet %s: %w", assignmentSheet, err)
	}

	var latest models.Assignment
	found := false
	for _, row := range rows[min(1, len(rows)):] {
		if len(row) < 4 || strings.TrimSpace(row[0]) != profile {
			continue
		}
		week, err := time.ParseInLocation(dateLayout, strings.TrimSpace(row[2]), time.Local)
		if err != nil {
			s.logger.Warn("Skipping assignment row with bad week date",
				zap.String("profile", profile),
				zap.String("value", row[2]),
			)
			continue
		}
		a := models.Assignment{
			Profile:     profile,
			ChallengeID: strings.TrimSpace(row[1]),
			WeekStart:   week,
			Completed:   coerceBool(row[3]),
		}
		if !found || a.WeekStart.After(latest.WeekStart) {
			latest = a
			found = true
		}
	}
	return latest, found, nil
}

// SaveAssignment upserts the row for (profile, week)
func (s *XlsxStore) SaveAssignment(ctx context.Context, a models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(assignmentSheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", assignmentSheet, err)
	}

	week := a.WeekStart.Format(dateLayout)
	rowNum := len(rows) + 1 // append by default
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue
		}
		if strings.TrimSpace(row[0]) == a.Profile && strings.TrimSpace(row[2]) == week {
			rowNum = i + 1
			break
		}
	}

	values := []interface{}{a.Profile, a.ChallengeID, week, formatBool(a.Completed)}
	for colIdx, v := range values {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowNum)
		f.SetCellValue(assignmentSheet, cell, v)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Close is a no-op; the workbook is opened per call
func (s *XlsxStore) Close() error {
	return nil
}

func (s *XlsxStore) coerceInt(v, col string, rowNum int) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// tolerate sheets edited by hand
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			s.logger.Warn("Coerced malformed cell to 0",
				zap.String("column", col),
				zap.Int("row", rowNum),
				zap.String("value", v),
			)
			return 0
		}
		return int(f)
	}
	return n
}

func (s *XlsxStore) coerceTime(v, col string, rowNum int) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{timeLayout, dateLayout} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t
		}
	}
	s.logger.Warn("Coerced malformed cell to unset date",
		zap.String("column", col),
		zap.Int("row", rowNum),
		zap.String("value", v),
	)
	return time.Time{}
}

func coerceBool(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "TRUE", "1", "SI", "SÍ", "YES":
		return true
	default:
		return false
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

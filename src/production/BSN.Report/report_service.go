package report

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	timewindow "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Timewindow"
)

const fileTimeLayout = "2006-01-02 03:04:05 PM"

// SeriesSource provides the windowed series the reports are built from.
// The graph feed implements it, so exports and the live graph always agree.
type SeriesSource interface {
	Query(ctx context.Context, unitID int, w timewindow.Window) (bsnmodels.GraphSeries, error)
}

// Service generates file exports and monthly aggregates. File generation is
// CPU-bound, so concurrent builds are capped by a semaphore and never run on
// the broadcast path.
type Service struct {
	source   SeriesSource
	resolver *timewindow.Resolver
	tempDir  string
	sem      chan struct{}
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a report service.
func NewService(source SeriesSource, resolver *timewindow.Resolver, cfg config.ReportConfig, log *logger.Logger) *Service {
	return &Service{
		source:   source,
		resolver: resolver,
		tempDir:  cfg.TempDir,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		logger:   log.WithComponent("report"),
		now:      time.Now,
	}
}

func (s *Service) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() {
	<-s.sem
}

func (s *Service) currentDaySeries(ctx context.Context, unitID int) (bsnmodels.GraphSeries, error) {
	return s.source.Query(ctx, unitID, s.resolver.CurrentWindow(s.now()))
}

// GenerateExcel writes the current reporting day's series for the unit to an
// xlsx workbook with an embedded line chart and returns the file path.
func (s *Service) GenerateExcel(ctx context.Context, unitID int) (string, error) {
	series, err := s.currentDaySeries(ctx, unitID)
	if err != nil {
		return "", err
	}
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("Unit %d Data", unitID)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Time (local)", "Temperature (°C)", "Humidity (%)"}); err != nil {
		return "", err
	}
	loc := s.resolver.Location()
	for i, p := range series {
		row := []interface{}{p.Time.In(loc).Format(fileTimeLayout), p.Temperature, p.Humidity}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return "", err
		}
	}

	if len(series) > 0 {
		last := len(series) + 1
		chart := &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{
				{
					Name:       fmt.Sprintf("'%s'!$B$1", sheet),
					Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, last),
					Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, last),
				},
				{
					Name:       fmt.Sprintf("'%s'!$C$1", sheet),
					Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, last),
					Values:     fmt.Sprintf("'%s'!$C$2:$C$%d", sheet, last),
				},
			},
			Title: []excelize.RichTextRun{{Text: fmt.Sprintf("Graph Data for Unit %d", unitID)}},
		}
		if err := f.AddChart(sheet, "E5", chart); err != nil {
			return "", err
		}
	}

	path := s.exportPath(unitID, "xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", err
	}
	s.logger.Logger.Info().Int("unit_ID", unitID).Str("path", path).Int("rows", len(series)).Msg("excel export generated")
	return path, nil
}

// GeneratePDF writes the current reporting day's series for the unit to a
// tabular PDF and returns the file path.
func (s *Service) GeneratePDF(ctx context.Context, unitID int) (string, error) {
	series, err := s.currentDaySeries(ctx, unitID)
	if err != nil {
		return "", err
	}
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 10, fmt.Sprintf("Graph Data for Unit %d", unitID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(70, 10, "Time (local)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 10, "Temperature (C)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 10, "Humidity (%)", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	loc := s.resolver.Location()
	for _, p := range series {
		pdf.CellFormat(70, 8, p.Time.In(loc).Format(fileTimeLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 8, fmt.Sprintf("%d", p.Temperature), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 8, fmt.Sprintf("%d", p.Humidity), "1", 1, "C", false, 0, "")
	}

	path := s.exportPath(unitID, "pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", err
	}
	s.logger.Logger.Info().Int("unit_ID", unitID).Str("path", path).Int("rows", len(series)).Msg("pdf export generated")
	return path, nil
}

// MonthlyAverage computes average temperature and humidity over the full
// month. Fails with NoData when the month has no entries.
func (s *Service) MonthlyAverage(ctx context.Context, unitID, month, year int) (*bsnmodels.MonthlyAverage, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", bsnmodels.ErrInvalidTimeFormat, month)
	}

	series, err := s.source.Query(ctx, unitID, s.resolver.MonthWindow(year, month))
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: unit_ID %d, %d-%02d", bsnmodels.ErrNoData, unitID, year, month)
	}

	var totalTemp, totalHumidity int
	for _, p := range series {
		totalTemp += p.Temperature
		totalHumidity += p.Humidity
	}
	n := float64(len(series))
	return &bsnmodels.MonthlyAverage{
		UnitID:      unitID,
		Month:       month,
		Year:        year,
		AvgTemp:     float64(totalTemp) / n,
		AvgHumidity: float64(totalHumidity) / n,
	}, nil
}

func (s *Service) exportPath(unitID int, ext string) string {
	// Unique name per request so concurrent downloads never clobber each other.
	return filepath.Join(s.tempDir, fmt.Sprintf("graph_data_unit_%d_%s.%s", unitID, uuid.New().String()[:8], ext))
}

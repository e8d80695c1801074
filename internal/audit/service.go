// Package audit exports the society's records to monthly Excel workbooks
// and prunes data past its retention window.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TableExporter reads database tables for export.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// Cleaner removes records past retention.
type Cleaner interface {
	DeleteOldBookings(ctx context.Context, olderThan string) (int64, error)
	PruneNotifications(ctx context.Context, olderThan time.Time) (int64, error)
}

// Config holds audit service settings.
type Config struct {
	// ExportPath is the directory monthly workbooks are written to.
	ExportPath string

	// RetentionDays is how long decided bookings and read notifications
	// are kept. Default 365.
	RetentionDays int

	// ExportOnStart runs an export immediately when the service starts.
	ExportOnStart bool
}

// Service schedules monthly exports and cleanup.
type Service struct {
	config   Config
	exporter TableExporter
	writer   func() ExcelWriter
	cleaner  Cleaner
	logger   *zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewService creates the audit service.
func NewService(config Config, exporter TableExporter, writerFactory func() ExcelWriter, cleaner Cleaner, logger *zerolog.Logger) *Service {
	if config.RetentionDays <= 0 {
		config.RetentionDays = 365
	}
	if config.ExportPath == "" {
		config.ExportPath = "exports"
	}
	return &Service{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		cleaner:  cleaner,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the monthly scheduler.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go s.runExportAndCleanup()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Int("retention_days", s.config.RetentionDays).
		Str("export_path", s.config.ExportPath).
		Msg("audit service started")
}

// Stop waits for the scheduler to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("audit service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := nextFirstOfMonth(time.Now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info().Time("next_run", nextRun).Msg("next audit export scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.runExportAndCleanup()
			nextRun = nextFirstOfMonth(time.Now())
			timer.Reset(time.Until(nextRun))
			s.logger.Info().Time("next_run", nextRun).Msg("next audit export scheduled")
		}
	}
}

// nextFirstOfMonth returns 00:01 on the first day of the following month.
func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

func (s *Service) runExportAndCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := s.Export(ctx); err != nil {
		s.logger.Error().Err(err).Msg("audit export failed")
	}
	if err := s.Cleanup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("audit cleanup failed")
	}
}

// ExportFilename names the workbook covering the previous month.
func ExportFilename(t time.Time) string {
	prev := t.AddDate(0, -1, 0)
	return fmt.Sprintf("audit_%s.xlsx", prev.Format("2006-01"))
}

// Export writes every audited table into one workbook, sheet per table.
func (s *Service) Export(ctx context.Context) error {
	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}
	if len(tables) == 0 {
		s.logger.Info().Msg("no tables to export")
		return nil
	}

	excel := s.writer()
	defer excel.Close()

	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to read table")
			continue
		}
		if err := excel.AddSheet(tableName); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to add sheet")
			continue
		}
		if err := excel.WriteHeader(columns); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to write header")
			continue
		}
		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("failed to write row")
			}
		}
		s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("table exported")
	}

	if err := os.MkdirAll(s.config.ExportPath, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(s.config.ExportPath, ExportFilename(time.Now()))
	if err := excel.SaveToFile(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("audit workbook written")
	return nil
}

// Cleanup deletes decided bookings and read notifications older than the
// retention window.
func (s *Service) Cleanup(ctx context.Context) error {
	if s.cleaner == nil {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)

	deleted, err := s.cleaner.DeleteOldBookings(ctx, cutoff.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("delete old bookings: %w", err)
	}
	pruned, err := s.cleaner.PruneNotifications(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}

	s.logger.Info().
		Int64("bookings_deleted", deleted).
		Int64("notifications_pruned", pruned).
		Int("retention_days", s.config.RetentionDays).
		Msg("retention cleanup complete")
	return nil
}

package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/parquet-go/parquet-go"
)

// HistoryRow is one archived session in the history index. Image data is
// not included.
type HistoryRow struct {
	SessionID   string `parquet:"session_id"`
	CreatedAt   int64  `parquet:"created_at_ms"`
	Summary     string `parquet:"summary"`
	ImageCount  int32  `parquet:"image_count"`
	AssetCount  int32  `parquet:"asset_count"`
	ScenarioIDs string `parquet:"scenario_ids"`
}

func historyRows(sessions []models.AlbumSession) []HistoryRow {
	rows := make([]HistoryRow, 0, len(sessions))
	for _, s := range sessions {
		scenarios := make([]string, 0, len(s.Images))
		for _, img := range s.Images {
			scenarios = append(scenarios, img.ScenarioID)
		}
		var created int64
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.UnixMilli()
		}
		rows = append(rows, HistoryRow{
			SessionID:   s.ID,
			CreatedAt:   created,
			Summary:     s.AnalysisSummary,
			ImageCount:  int32(len(s.Images)),
			AssetCount:  int32(len(s.ReferenceAssets)),
			ScenarioIDs: strings.Join(scenarios, ","),
		})
	}
	return rows
}

// WriteHistoryIndex writes a Parquet index of archived sessions.
func WriteHistoryIndex(path string, sessions []models.AlbumSession) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[HistoryRow](file)
	if _, err := writer.Write(historyRows(sessions)); err != nil {
		return fmt.Errorf("failed to write history rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	slog.Info("Wrote history index", "path", path, "sessions", len(sessions))
	return nil
}

// ReadHistoryIndex loads a history index written by WriteHistoryIndex.
func ReadHistoryIndex(path string) ([]HistoryRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history index: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[HistoryRow](pf)
	defer reader.Close()

	var records []HistoryRow
	rows := make([]HistoryRow, 64)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read history rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return records, nil
}

// VerifyHistoryIndex reads back an index and checks it lists the given
// sessions in order.
func VerifyHistoryIndex(path string, sessions []models.AlbumSession) error {
	rows, err := ReadHistoryIndex(path)
	if err != nil {
		return err
	}
	if len(rows) != len(sessions) {
		return fmt.Errorf("history index has %d rows, expected %d", len(rows), len(sessions))
	}
	for i, s := range sessions {
		if rows[i].SessionID != s.ID {
			return fmt.Errorf("history index row %d is session %s, expected %s", i, rows[i].SessionID, s.ID)
		}
		if int(rows[i].ImageCount) != len(s.Images) {
			return fmt.Errorf("history index row %d has %d images, expected %d", i, rows[i].ImageCount, len(s.Images))
		}
	}
	return nil
}

package orders

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"orderbot/core/logger"
)

var csvHeader = []string{"user_id", "category", "product", "quantity", "delivery_date", "created_at"}

// CSVStore appends orders to a flat CSV log, creating it with a header row on
// first use. A mutex serializes appends so concurrent conversations never
// interleave records.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore returns a store writing to the given file path. The file is
// created lazily on the first append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Append writes one order record, creating the log with its header if needed.
func (s *CSVStore) Append(ctx context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	writeHeader := false
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Store.Error("csv open failed",
			slog.String("event", "store.append"),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%w: open %s: %v", ErrUnavailable, s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("%w: write header: %v", ErrUnavailable, err)
		}
	}
	record := []string{
		strconv.FormatInt(order.UserID, 10),
		order.Category,
		order.Product,
		strconv.Itoa(order.Quantity),
		order.DeliveryDate,
		order.CreatedAt.Format(time.RFC3339),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("%w: write record: %v", ErrUnavailable, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrUnavailable, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrUnavailable, err)
	}

	logger.Store.Info("order appended",
		slog.String("event", "store.append"),
		slog.String("backend", "csv"),
		slog.Int64("user_id", order.UserID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

package orders_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/orders"
)

func sampleOrder(userID int64) orders.Order {
	return orders.Order{
		UserID:       userID,
		Category:     "Clothing",
		Product:      "Jeans",
		Quantity:     3,
		DeliveryDate: "01-01-2025",
		CreatedAt:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVStoreAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	store := orders.NewCSVStore(path)

	require.NoError(t, store.Append(context.Background(), sampleOrder(42)))

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"user_id", "category", "product", "quantity", "delivery_date", "created_at"}, rows[0])
	assert.Equal(t, []string{"42", "Clothing", "Jeans", "3", "01-01-2025", "2025-01-01T12:00:00Z"}, rows[1])
}

func TestCSVStoreHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	store := orders.NewCSVStore(path)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, sampleOrder(1)))
	require.NoError(t, store.Append(ctx, sampleOrder(2)))

	// Header survives across store instances too.
	require.NoError(t, orders.NewCSVStore(path).Append(ctx, sampleOrder(3)))

	rows := readAll(t, path)
	require.Len(t, rows, 4)
	headers := 0
	for _, row := range rows {
		if row[0] == "user_id" {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestCSVStoreConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	store := orders.NewCSVStore(path)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if err := store.Append(ctx, sampleOrder(userID)); err != nil {
				t.Errorf("append user %d: %v", userID, err)
			}
		}(int64(i))
	}
	wg.Wait()

	rows := readAll(t, path)
	require.Len(t, rows, n+1)
	seen := make(map[string]bool)
	for _, row := range rows[1:] {
		require.Len(t, row, 6)
		assert.False(t, seen[row[0]], "duplicate record for user %s", row[0])
		seen[row[0]] = true
		if _, err := strconv.Atoi(row[3]); err != nil {
			t.Errorf("quantity column not numeric: %q", row[3])
		}
	}
}

func TestCSVStoreUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the open fail.
	store := orders.NewCSVStore(dir)

	err := store.Append(context.Background(), sampleOrder(1))
	assert.ErrorIs(t, err, orders.ErrUnavailable)
}

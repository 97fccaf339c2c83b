package xlsxGenerator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerate(t *testing.T) {
	trades := []model.Trade{
		{
			Symbol:     "AAPL",
			Shortname:  "Apple Inc",
			Quantity:   10,
			Price:      decimal.RequireFromString("150.00"),
			TotalPrice: decimal.RequireFromString("1500.00"),
			CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Symbol:     "AAPL",
			Shortname:  "Apple Inc",
			Quantity:   -4,
			Price:      decimal.RequireFromString("160.00"),
			TotalPrice: decimal.RequireFromString("640.00"),
			CreatedAt:  time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
		},
	}

	fileBytes, fileExtension, err := New().Generate(context.Background(), trades)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", fileExtension)

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("History", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Transaction history", title)

	symbol, err := f.GetCellValue("History", "A3")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)

	shares, err := f.GetCellValue("History", "C4")
	require.NoError(t, err)
	assert.Equal(t, "-4", shares)
}

func TestGenerateEmptyHistory(t *testing.T) {
	fileBytes, _, err := New().Generate(context.Background(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"History"}, f.GetSheetList())
}

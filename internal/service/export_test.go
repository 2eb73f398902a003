package service

import (
	"strings"
	"testing"
	"time"

	"github.com/cardledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	memo := `A "B" C`
	usages := []models.Usage{
		{
			UsedAt:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			Merchant: "스타벅스, 강남점",
			Amount:   decimal.NewNullDecimal(decimal.NewFromInt(12000)),
			Purpose:  "거래처 미팅",
			Memo:     &memo,
			Category: &models.Category{Name: "회의음료"},
		},
		{
			UsedAt:  time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
			Purpose: "야근",
		},
	}

	out := renderCSV(usages, time.UTC)

	require.True(t, strings.HasPrefix(out, utf8BOM))
	lines := strings.Split(strings.TrimPrefix(out, utf8BOM), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"사용일자","적용항목","용도/사유","금액","사용처","메모"`, lines[0])
	assert.Equal(t, `"2026. 3. 5.","회의음료","거래처 미팅","12000","스타벅스, 강남점","A ""B"" C"`, lines[1])
	assert.Equal(t, `"2026. 11. 20.","","야근","","",""`, lines[2])
}

func TestRenderCSVEmpty(t *testing.T) {
	out := renderCSV(nil, time.UTC)
	assert.Equal(t, utf8BOM+`"사용일자","적용항목","용도/사유","금액","사용처","메모"`, out)
}

func TestKoreanDateUsesLedgerTimezone(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	// 2026-03-04 20:00 UTC is already the 5th in Seoul
	utc := time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026. 3. 5.", koreanDate(utc.In(seoul)))
}

func TestExportFilenameAndScope(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	env.addUsage(t, alice.ID, "2026-03-05", "1000")
	env.addUsage(t, alice.ID, "2026-04-05", "2000")

	monthly, err := env.usages.Export(alice.ID, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, "법인카드_2026년3월.csv", monthly.Filename)
	assert.Equal(t, 1, strings.Count(string(monthly.Data), "\r\n"))

	all, err := env.usages.Export(alice.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "법인카드_전체.csv", all.Filename)
	assert.Equal(t, 2, strings.Count(string(all.Data), "\r\n"))
}

package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/cardledger/internal/models"
)

const utf8BOM = "\uFEFF"

// ExportContentType is the media type of a usage export
const ExportContentType = "text/csv; charset=utf-8"

var exportHeader = []string{"사용일자", "적용항목", "용도/사유", "금액", "사용처", "메모"}

// Export is a rendered CSV file
type Export struct {
	Filename string
	Data     []byte
}

// Export renders the user's usages, optionally limited to one month, as CSV
func (s *UsageService) Export(userID uint, year, month int) (*Export, error) {
	f, err := s.filter(userID, year, month)
	if err != nil {
		return nil, err
	}

	usages, err := s.usageRepo.FindAll(f)
	if err != nil {
		return nil, fmt.Errorf("export usages: %w", err)
	}

	filename := "법인카드_전체.csv"
	if !f.From.IsZero() {
		filename = fmt.Sprintf("법인카드_%d년%d월.csv", year, month)
	}

	return &Export{
		Filename: filename,
		Data:     []byte(renderCSV(usages, s.location)),
	}, nil
}

// renderCSV quotes every field, doubles embedded quotes and joins rows with
// CRLF behind a UTF-8 byte order mark
func renderCSV(usages []models.Usage, loc *time.Location) string {
	rows := make([]string, 0, len(usages)+1)
	rows = append(rows, csvRow(exportHeader))

	for i := range usages {
		u := &usages[i]

		amount := ""
		if u.Amount.Valid {
			amount = u.Amount.Decimal.String()
		}
		memo := ""
		if u.Memo != nil {
			memo = *u.Memo
		}

		rows = append(rows, csvRow([]string{
			koreanDate(u.UsedAt.In(loc)),
			u.CategoryName(),
			u.Purpose,
			amount,
			u.Merchant,
			memo,
		}))
	}

	return utf8BOM + strings.Join(rows, "\r\n")
}

func csvRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, cell := range cells {
		quoted[i] = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

// koreanDate formats t the way the ko-KR locale prints a short date
func koreanDate(t time.Time) string {
	return fmt.Sprintf("%d. %d. %d.", t.Year(), int(t.Month()), t.Day())
}

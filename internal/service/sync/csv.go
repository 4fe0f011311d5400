package sync

import (
	"strings"

	"github.com/rtlmb/member-sync/internal/domain"
)

// parsedRow is one data row from the CSV, carrying its 1-indexed row number
// (header excluded) through the whole pipeline so error reports stay correct
// even when rows are processed out of order.
type parsedRow struct {
	Number int
	Member domain.MemberRow
	Err    *domain.ImportRowError
}

// ParseMemberCSV splits raw CSV text into member rows and per-row errors.
// It never fails as a whole: every malformed row becomes an ImportRowError
// and parsing continues with the next line.
//
// The format contract is a naive comma split: the first non-empty line is a
// header and is skipped, fields are trimmed and stripped of surrounding
// quote characters, and embedded commas or newlines inside quoted fields
// are NOT supported. Membership exports must not contain such fields.
func ParseMemberCSV(data string) []parsedRow {
	lines := make([]string, 0, 64)
	for _, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= 1 {
		return nil
	}

	rows := make([]parsedRow, 0, len(lines)-1)
	for i, line := range lines[1:] { // skip header
		rowNum := i + 1
		cols := strings.Split(line, ",")
		for j := range cols {
			cols[j] = strings.Trim(strings.TrimSpace(cols[j]), `"`)
		}

		if len(cols) < 5 {
			email := "unknown"
			if len(cols) > 2 && cols[2] != "" {
				email = cols[2]
			}
			rows = append(rows, parsedRow{
				Number: rowNum,
				Err:    &domain.ImportRowError{Row: rowNum, Email: email, Error: "insufficient columns"},
			})
			continue
		}

		member := domain.MemberRow{
			FirstName:       cols[0],
			LastName:        cols[1],
			Email:           cols[2],
			MembershipStart: cols[3],
			RenewalDate:     cols[4],
		}
		if err := member.Validate(); err != nil {
			email := member.Email
			if email == "" {
				email = "unknown"
			}
			rows = append(rows, parsedRow{
				Number: rowNum,
				Err:    &domain.ImportRowError{Row: rowNum, Email: email, Error: err.Error()},
			})
			continue
		}

		rows = append(rows, parsedRow{Number: rowNum, Member: member})
	}
	return rows
}

package csvparser

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

const defaultMaxRows = 5000

// MemberRow is one member extracted from a roster CSV.
type MemberRow struct {
	Name  string
	Email string
	OptIn bool
	Line  int
}

// ParseMemberRows reads a roster CSV. The header row must contain an "Email"
// column and may contain "Name" and "OptIn" columns (case-insensitive).
// OptIn defaults to true. Rows with a blank email, a column count that does
// not match the header, or an unreadable OptIn value are skipped and
// returned as skipped line numbers.
func ParseMemberRows(r io.Reader, maxRows int) (rows []MemberRow, skipped []int, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read csv header")
	}

	nameIdx, emailIdx, optInIdx := -1, -1, -1
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameIdx = i
		case "email":
			emailIdx = i
		case "optin", "opt_in", "email_opt_in":
			optInIdx = i
		}
	}
	if emailIdx == -1 {
		return nil, nil, errors.New("csv must contain an Email column")
	}

	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped = append(skipped, parseErr.Line)
				continue
			}
			return nil, nil, errors.Wrap(err, "read csv row")
		}
		line, _ := reader.FieldPos(0)
		if len(record) != len(headers) {
			skipped = append(skipped, line)
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" {
			skipped = append(skipped, line)
			continue
		}

		row := MemberRow{Email: strings.ToLower(email), OptIn: true, Line: line}
		if nameIdx >= 0 {
			row.Name = strings.TrimSpace(record[nameIdx])
		}
		if row.Name == "" {
			row.Name = email[:strings.IndexByte(email+"@", '@')]
		}
		if optInIdx >= 0 {
			v, ok := parseOptIn(record[optInIdx])
			if !ok {
				skipped = append(skipped, line)
				continue
			}
			row.OptIn = v
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, skipped, errors.New("csv must contain at least one member row")
	}
	return rows, skipped, nil
}

func parseOptIn(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

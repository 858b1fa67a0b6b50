package services

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// importColumns is the fixed column order of an import file.
const importColumns = 4

// csvRow mirrors one line of an import file. Every field stays textual so
// that parsing problems surface per row instead of aborting the file.
type csvRow struct {
	Title    string `csv:"title"`
	Type     string `csv:"type"`
	Value    string `csv:"value"`
	Category string `csv:"category"`
}

// rowReader adapts encoding/csv to gocsv.CSVReader. It drops the header,
// trims every field, normalises rows to four columns and remembers the
// source line of each row it hands out.
type rowReader struct {
	r      *csv.Reader
	header bool
	lines  []int
}

func newRowReader(in io.Reader) *rowReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return &rowReader{r: r}
}

func (rr *rowReader) Read() ([]string, error) {
	if !rr.header {
		rr.header = true
		if _, err := rr.r.Read(); err != nil {
			return nil, err
		}
	}
	rec, err := rr.r.Read()
	if err != nil {
		return nil, err
	}
	line, _ := rr.r.FieldPos(0)
	rr.lines = append(rr.lines, line)
	return normalise(rec), nil
}

func (rr *rowReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := rr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func normalise(rec []string) []string {
	out := make([]string, importColumns)
	for i := 0; i < importColumns && i < len(rec); i++ {
		out[i] = strings.TrimSpace(rec[i])
	}
	return out
}

package loader

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported in Table.Encoding
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingUTF16   = "utf-16"
	EncodingCP1252  = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (l *Loader) loadCSV(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read CSV file", goerr.V("path", path))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, goerr.New("CSV file is empty", goerr.V("path", path), goerr.T(model.ErrTagEmptyFile))
	}

	text, enc, err := decodeText(raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode CSV file", goerr.V("path", path))
	}

	records, lines, err := readRecords(text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse CSV file", goerr.V("path", path))
	}

	table, err := l.buildTable(records, lines)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid CSV layout", goerr.V("path", path))
	}
	table.Encoding = enc
	if enc == EncodingCP1252 {
		table.Warnings = append(table.Warnings, model.Warning{
			Message: "file is not valid UTF-8 and was decoded as Windows-1252, check names with accented characters",
		})
	}
	return table, nil
}

// decodeText converts raw file content to a UTF-8 string. UTF-8 (with or
// without BOM) and BOM-marked UTF-16 are recognized; any other byte sequence
// is read as Windows-1252, which accepts every byte and covers Latin-1.
func decodeText(raw []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(raw, utf8BOM):
		return string(raw[len(utf8BOM):]), EncodingUTF8BOM, nil

	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}), bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		s, err := decodeWith(raw, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM))
		return s, EncodingUTF16, err

	case utf8.Valid(raw):
		return string(raw), EncodingUTF8, nil

	default:
		s, err := decodeWith(raw, charmap.Windows1252)
		return s, EncodingCP1252, err
	}
}

func decodeWith(raw []byte, enc encoding.Encoding) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", goerr.Wrap(err, "failed to transform text")
	}
	return string(out), nil
}

// readRecords parses every record and the line each record starts on
func readRecords(text string) ([][]string, []int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to read CSV record", goerr.V("records_read", len(records)))
		}
		line, _ := r.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

const sniffLines = 5

// sniffDelimiter picks the separator that splits the first lines of the file
// into the same number of fields most often. A line without the separator
// does not vote, and a larger field count breaks a tie in votes. Comma wins
// remaining ties.
func sniffDelimiter(text string) rune {
	lines := strings.SplitN(text, "\n", sniffLines+1)
	if len(lines) > sniffLines {
		lines = lines[:sniffLines]
	}

	best, bestVotes, bestCount := ',', 0, 0
	for _, d := range []rune{',', ';', '\t'} {
		votes := make(map[int]int)
		for _, line := range lines {
			if n := strings.Count(line, string(d)); n > 0 {
				votes[n]++
			}
		}

		modeVotes, modeCount := 0, 0
		for n, v := range votes {
			if v > modeVotes || (v == modeVotes && n > modeCount) {
				modeVotes, modeCount = v, n
			}
		}

		if modeVotes > bestVotes || (modeVotes == bestVotes && modeCount > bestCount) {
			best, bestVotes, bestCount = d, modeVotes, modeCount
		}
	}
	return best
}

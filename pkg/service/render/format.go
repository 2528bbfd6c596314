package render

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxFilenameLength = 100

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
)

// CleanFilename makes a string safe to use as a file name. Reserved
// characters and whitespace runs become underscores, leading and trailing
// dots and underscores are removed and the result is cut to at most 100
// bytes without splitting a character.
func CleanFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > maxFilenameLength {
		cut := maxFilenameLength
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}

// BaseName returns the cleaned input file name without extension, used as
// the prefix of every output file of that input
func BaseName(inputPath string) string {
	name := filepath.Base(inputPath)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if cleaned := CleanFilename(name); cleaned != "" {
		return cleaned
	}
	return "report"
}

// OutputBase returns the prefix of the output files of a result: the name
// chosen for it, or the base name of its input
func OutputBase(result *model.FileResult) string {
	if result.OutputName != "" {
		return result.OutputName
	}
	return BaseName(result.Input)
}

// DisplayName turns a base name like "open_cases_q1" into "Open Cases Q1"
func DisplayName(base string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(base, "_", " "))
}

// FormatDuration formats a duration in seconds, minutes, hours or days with one decimal
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1f seconds", s)
	case s < 3600:
		return fmt.Sprintf("%.1f minutes", s/60)
	case s < 86400:
		return fmt.Sprintf("%.1f hours", s/3600)
	default:
		return fmt.Sprintf("%.1f days", s/86400)
	}
}

// FormatNumber formats an integer with thousands separators
func FormatNumber(n int) string {
	return humanize.Comma(int64(n))
}

// FormatDecimal formats a float with thousands separators. Whole numbers have
// no decimals, others two.
func FormatDecimal(v float64) string {
	if v == math.Trunc(v) {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 2)
}

// FormatFileSize formats a byte count, e.g. "1.5 MiB"
func FormatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

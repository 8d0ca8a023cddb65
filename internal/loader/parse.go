package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ParseNumber accepts both "1.234,56" and "1234.56". A lone comma is a decimal
// separator; a lone dot is too unless it appears more than once. Blank is zero.
// NaN and infinities are rejected.
func ParseNumber(value string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	if v == "" {
		return 0, nil
	}

	lastDot := strings.LastIndex(v, ".")
	lastComma := strings.LastIndex(v, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			v = strings.ReplaceAll(v, ".", "")
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(v, ",") > 1 {
			v = strings.ReplaceAll(v, ",", "")
		} else {
			v = strings.Replace(v, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(v, ".") > 1 {
			v = strings.ReplaceAll(v, ".", "")
		}
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite number", ErrInvalidValue, value)
	}
	return f, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts ISO, Protheus (yyyymmdd) and Brazilian (dd/mm/yyyy) dates.
// Spreadsheet serial numbers are converted as well. Blank is the zero time.
func ParseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 && serial < 2958466 {
		return excelize.ExcelDateToTime(serial, false)
	}

	return time.Time{}, &time.ParseError{Layout: dateLayouts[0], Value: v, Message: ": unrecognized date"}
}

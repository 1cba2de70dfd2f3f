package service

import (
	"time"

	"github.com/go-playground/validator/v10"

	perr "transitsync/internal/platform/errors"
)

var validate = validator.New()

type monthArgs struct {
	Year  int `validate:"gte=1990,lte=2100"`
	Month int `validate:"gte=1,lte=12"`
}

type intervalArgs struct {
	Start int64 `validate:"gte=631152000,lte=4102444800"`
	End   int64 `validate:"gte=631152000,lte=4102444800,gtefield=Start"`
}

// MonthWindow resolves a calendar month into the inclusive [start, end] epoch
// range covering it, in UTC. The end is the last second of the month
func MonthWindow(year, month int) (int64, int64, error) {
	if err := validate.Struct(monthArgs{Year: year, Month: month}); err != nil {
		return 0, 0, perr.InvalidArgf("month %04d-%02d out of range", year, month)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start.Unix(), end.Unix(), nil
}

// IntervalWindow validates an explicit inclusive [start, end] epoch range.
// Bounds outside 1990..2100 are rejected as likely operator typos
func IntervalWindow(start, end int64) (int64, int64, error) {
	if err := validate.Struct(intervalArgs{Start: start, End: end}); err != nil {
		return 0, 0, perr.InvalidArgf("interval [%d, %d] not a plausible epoch range", start, end)
	}
	return start, end, nil
}

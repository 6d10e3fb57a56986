// Package walkforward implements C6: running a generated program across
// an ordered list of WindowSpecs via the backtest driver, with
// first-window-only error correction, short-circuiting on transient or
// permanent driver failures, and aggregating statistics over the
// successful windows only.
package walkforward

import (
	"time"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// WindowSetName selects one of the closed set of configured (not
// dynamic) walk-forward schedules.
type WindowSetName string

const (
	WindowSet1  WindowSetName = "WindowSet1"
	WindowSet2  WindowSetName = "WindowSet2"
	WindowSet5  WindowSetName = "WindowSet5"
	WindowSet12 WindowSetName = "WindowSet12"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// Windows returns the ordered WindowSpecs for a schedule name. WindowSet5
// is the pipeline's default per §4.6; WindowSet12 is a future-use
// variant (two-year stride, two-year span: twelve back-to-back windows
// over 2000-2023) not selected by default.
func Windows(name WindowSetName) []domain.WindowSpec {
	switch name {
	case WindowSet1:
		return []domain.WindowSpec{
			{ID: 1, Start: mustDate("2012-01-01"), End: mustDate("2023-12-31")},
		}
	case WindowSet2:
		return []domain.WindowSpec{
			{ID: 1, Start: mustDate("2012-01-01"), End: mustDate("2017-12-31")},
			{ID: 2, Start: mustDate("2018-01-01"), End: mustDate("2023-12-31")},
		}
	case WindowSet5:
		return []domain.WindowSpec{
			{ID: 1, Start: mustDate("2012-01-01"), End: mustDate("2015-12-31")},
			{ID: 2, Start: mustDate("2014-01-01"), End: mustDate("2017-12-31")},
			{ID: 3, Start: mustDate("2016-01-01"), End: mustDate("2019-12-31")},
			{ID: 4, Start: mustDate("2018-01-01"), End: mustDate("2021-12-31")},
			{ID: 5, Start: mustDate("2020-01-01"), End: mustDate("2023-12-31")},
		}
	case WindowSet12:
		return buildStridedWindows(2000, 2023, 2, 2)
	default:
		return Windows(WindowSet5)
	}
}

// buildStridedWindows generates windows of spanYears length starting
// every strideYears, covering [startYear, endYear].
func buildStridedWindows(startYear, endYear, strideYears, spanYears int) []domain.WindowSpec {
	var windows []domain.WindowSpec
	id := 1
	for y := startYear; y+spanYears-1 <= endYear; y += strideYears {
		windows = append(windows, domain.WindowSpec{
			ID:    id,
			Start: time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(y+spanYears-1, 12, 31, 0, 0, 0, 0, time.UTC),
		})
		id++
	}
	return windows
}

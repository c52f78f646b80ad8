package excel

import (
	"fmt"
	"math"
	"time"
)

// Excel serial dates past 9999-12-31 are rejected.
const (
	xlDaysTooLarge1900 = 2958466
	xlDaysTooLarge1904 = 2958466 - 1462
)

var (
	epoch1904       = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	epoch1900       = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	epoch1900Minus1 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
)

// xlDateAsTime converts an Excel serial date to a time.Time in UTC.
// datemode 0 selects the 1900 system, 1 the 1904 system.
//
// The 1900 system pretends 1900 was a leap year: serials below 61 use an
// epoch one day earlier so that serial 1 maps to 1900-01-01 and serial 61
// to 1900-03-01. Serial 60, the nonexistent 1900-02-29, is rejected.
func xlDateAsTime(xldate float64, datemode int) (time.Time, error) {
	if datemode != 0 && datemode != 1 {
		return time.Time{}, fmt.Errorf("invalid datemode %d", datemode)
	}
	if xldate < 0 {
		return time.Time{}, fmt.Errorf("negative serial date %g", xldate)
	}

	days := int(xldate)
	frac := xldate - float64(days)
	seconds := int(math.Round(frac * 86400))
	if seconds == 86400 {
		seconds = 0
		days++
	}

	var epoch time.Time
	if datemode == 1 {
		if days >= xlDaysTooLarge1904 {
			return time.Time{}, fmt.Errorf("serial date %g out of range", xldate)
		}
		epoch = epoch1904
	} else {
		if days >= xlDaysTooLarge1900 {
			return time.Time{}, fmt.Errorf("serial date %g out of range", xldate)
		}
		if days == 60 {
			return time.Time{}, fmt.Errorf("serial date 60 is the nonexistent 1900-02-29")
		}
		if days < 61 {
			epoch = epoch1900
		} else {
			epoch = epoch1900Minus1
		}
	}

	return epoch.AddDate(0, 0, days).Add(time.Duration(seconds) * time.Second), nil
}

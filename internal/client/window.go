package client

import (
	"fmt"
	"time"
)

// TimeWindow: окно выборки bulk_read.
type TimeWindow string

const (
	WindowToday          TimeWindow = "today"
	WindowSinceYesterday TimeWindow = "since_yesterday"
	WindowLast7Days      TimeWindow = "since_last_7_days"
	WindowLast14Days     TimeWindow = "since_last_14_days"
	WindowLast28Days     TimeWindow = "since_last_28_days"
	WindowLast90Days     TimeWindow = "since_last_90_days"
)

// TimeWindows в порядке показа в интерфейсе.
var TimeWindows = []TimeWindow{
	WindowToday, WindowSinceYesterday, WindowLast7Days,
	WindowLast14Days, WindowLast28Days, WindowLast90Days,
}

var windowDays = map[TimeWindow]int{
	WindowToday:          0,
	WindowSinceYesterday: 1,
	WindowLast7Days:      7,
	WindowLast14Days:     14,
	WindowLast28Days:     28,
	WindowLast90Days:     90,
}

// ParseTimeWindow принимает только известные окна.
func ParseTimeWindow(s string) (TimeWindow, error) {
	w := TimeWindow(s)
	if _, ok := windowDays[w]; !ok {
		return "", fmt.Errorf("unknown time window %q", s)
	}
	return w, nil
}

// Since: начало окна: полночь (в зоне now) нужное число дней назад.
func (w TimeWindow) Since(now time.Time) time.Time {
	days := windowDays[w]
	d := now.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}

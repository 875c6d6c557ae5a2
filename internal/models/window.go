package models

import (
	"fmt"
	"time"
)

// DateLayout 命令行与文件名使用的日期格式
const DateLayout = "2006-01-02"

// Day 将时间截断到UTC零点
// 所有日期比较都在天粒度上进行
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay 按layout解析日期并截断到天
func ParseDay(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DiffDays 返回 d1 - d2 相差的天数
// 结果为正表示 d2 比 d1 更早
func DiffDays(d1, d2 time.Time) int {
	return int(Day(d1).Sub(Day(d2)).Hours() / 24)
}

// DateWindow 日期窗口,闭区间 [Start, End]
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow 校验并创建日期窗口
// 约束: start <= end <= today
func NewDateWindow(start, end, today time.Time) (DateWindow, error) {
	start, end, today = Day(start), Day(end), Day(today)

	if start.After(end) {
		return DateWindow{}, &ValidationError{
			Field:      "start",
			Value:      start.Format(DateLayout),
			Reason:     fmt.Sprintf("开始日期晚于结束日期 %s", end.Format(DateLayout)),
			Suggestion: "交换 --start 与 --end",
		}
	}
	if start.After(today) {
		return DateWindow{}, &ValidationError{
			Field:  "start",
			Value:  start.Format(DateLayout),
			Reason: "开始日期不能晚于今天",
		}
	}
	if end.After(today) {
		return DateWindow{}, &ValidationError{
			Field:      "end",
			Value:      end.Format(DateLayout),
			Reason:     "结束日期不能晚于今天",
			Suggestion: fmt.Sprintf("使用 %s 或更早的日期", today.Format(DateLayout)),
		}
	}

	return DateWindow{Start: start, End: end}, nil
}

// ParseDateWindow 解析yyyy-mm-dd格式的起止日期
func ParseDateWindow(start, end string, today time.Time) (DateWindow, error) {
	s, err := ParseDay(DateLayout, start)
	if err != nil {
		return DateWindow{}, &ValidationError{
			Field:      "start",
			Value:      start,
			Reason:     "日期格式无效",
			Suggestion: "使用 yyyy-mm-dd 格式",
		}
	}
	e, err := ParseDay(DateLayout, end)
	if err != nil {
		return DateWindow{}, &ValidationError{
			Field:      "end",
			Value:      end,
			Reason:     "日期格式无效",
			Suggestion: "使用 yyyy-mm-dd 格式",
		}
	}
	return NewDateWindow(s, e, today)
}

// Contains 日期是否落在窗口内(含两端)
func (w DateWindow) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days 返回窗口内的每一天,从旧到新
func (w DateWindow) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// String 返回 "start ~ end"
func (w DateWindow) String() string {
	return w.Start.Format(DateLayout) + " ~ " + w.End.Format(DateLayout)
}

package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/models"
)

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var (
	wordSplit = regexp.MustCompile(`[\s,.|]+`)
	isoDate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// parseSpanishDate 解析西班牙语长日期,如 "Lunes 8 de enero de 2024"
// 取第一个1-2位数字为日,第一个月份名为月,第一个4位数字为年
func parseSpanishDate(raw string) (time.Time, bool) {
	day, year := 0, 0
	var month time.Month

	for _, word := range wordSplit.Split(strings.ToLower(raw), -1) {
		if word == "" {
			continue
		}
		if m, ok := spanishMonths[word]; ok && month == 0 {
			month = m
			continue
		}
		n, err := strconv.Atoi(word)
		if err != nil {
			continue
		}
		switch {
		case len(word) <= 2 && day == 0 && month == 0:
			day = n
		case len(word) == 4 && year == 0:
			year = n
		}
	}

	if day < 1 || day > 31 || month == 0 || year == 0 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// 拒绝 31 de febrero 这类被time.Date规范化的日期
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// dateFromPath 在URL路径段中查找 yyyy-mm-dd,从后往前
func dateFromPath(segments []string) (time.Time, bool) {
	for i := len(segments) - 1; i >= 0; i-- {
		if !isoDate.MatchString(segments[i]) {
			continue
		}
		if t, err := models.ParseDay(models.DateLayout, segments[i]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// optionalDate 将解析结果包装为Optional
func optionalDate(t time.Time, ok bool) models.Optional[time.Time] {
	if !ok {
		return models.None[time.Time]()
	}
	return models.Some(models.Day(t))
}

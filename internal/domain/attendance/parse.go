package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "02-01-2006"

// ParseTimeOfDay parses an HH:MM punch time. Blank input means the
// punch is absent and yields (nil, nil). A trailing "(N)" marks an
// out-time that rolled past midnight; the marker is stripped and
// otherwise ignored, matching the sheets in circulation.
func ParseTimeOfDay(text string) (*TimeOfDay, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	if strings.Contains(trimmed, "(N)") || strings.Contains(trimmed, "(n)") {
		trimmed = strings.ReplaceAll(trimmed, "(N)", "")
		trimmed = strings.ReplaceAll(trimmed, "(n)", "")
		trimmed = strings.TrimSpace(trimmed)
	}

	hourText, minuteText, found := strings.Cut(trimmed, ":")
	if !found {
		return nil, fmt.Errorf("invalid time format: %s. Expected HH:MM or HH:MM (N)", text)
	}
	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid time format: %s. Expected HH:MM or HH:MM (N)", text)
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid time format: %s. Expected HH:MM or HH:MM (N)", text)
	}
	return &TimeOfDay{Hour: hour, Minute: minute}, nil
}

// ParseDurationHours parses a worked-hours cell. Accepts H:MM (converted
// to fractional hours) or a plain decimal. Blank or unparseable input
// coerces to zero rather than rejecting the row; sheets routinely carry
// junk in these columns and the strict policy applies to dates and
// punch times only.
func ParseDurationHours(text string) decimal.Decimal {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return decimal.Zero
	}

	if strings.Contains(trimmed, ":") {
		hourText, minuteText, _ := strings.Cut(trimmed, ":")
		hours, err := strconv.Atoi(hourText)
		if err != nil {
			return decimal.Zero
		}
		minutes, err := strconv.Atoi(minuteText)
		if err != nil {
			return decimal.Zero
		}
		totalMinutes := int64(hours)*60 + int64(minutes)
		return decimal.NewFromInt(totalMinutes).Div(decimal.NewFromInt(60))
	}

	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// ParseCalendarDate parses the strict DD-MM-YYYY sheet date.
func ParseCalendarDate(text string) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Expected DD-MM-YYYY", text)
	}
	return parsed, nil
}

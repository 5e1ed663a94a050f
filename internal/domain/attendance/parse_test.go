package attendance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *TimeOfDay
		wantErr bool
	}{
		{
			name:  "plain time",
			input: "08:00",
			want:  &TimeOfDay{Hour: 8},
		},
		{
			name:  "next day marker stripped",
			input: "06:30 (N)",
			want:  &TimeOfDay{Hour: 6, Minute: 30},
		},
		{
			name:  "lowercase next day marker",
			input: "22:15 (n)",
			want:  &TimeOfDay{Hour: 22, Minute: 15},
		},
		{
			name:  "blank is absent",
			input: "   ",
			want:  nil,
		},
		{
			name:    "out of range",
			input:   "25:99",
			wantErr: true,
		},
		{
			name:    "no colon",
			input:   "0800",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "morning",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil time, got %v", got)
				}
				return
			}
			if got == nil || *got != *tc.want {
				t.Fatalf("ParseTimeOfDay(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseDurationHours(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  decimal.Decimal
	}{
		{
			name:  "colon form",
			input: "1:30",
			want:  decimal.NewFromFloat(1.5),
		},
		{
			name:  "colon form with empty minutes coerces to zero",
			input: "8:",
			want:  decimal.Zero,
		},
		{
			name:  "decimal form",
			input: "7.25",
			want:  decimal.NewFromFloat(7.25),
		},
		{
			name:  "blank coerces to zero",
			input: "",
			want:  decimal.Zero,
		},
		{
			name:  "garbage coerces to zero",
			input: "abc",
			want:  decimal.Zero,
		},
		{
			name:  "malformed colon form coerces to zero",
			input: "x:30",
			want:  decimal.Zero,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDurationHours(tc.input)
			if !got.Equal(tc.want) {
				t.Fatalf("ParseDurationHours(%q) = %s, want %s", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseCalendarDate(t *testing.T) {
	got, err := ParseCalendarDate("15-01-2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseCalendarDate = %v, want %v", got, want)
	}

	for _, input := range []string{"2024-01-15", "15/01/2024", "", "32-01-2024"} {
		if _, err := ParseCalendarDate(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestFormatHours(t *testing.T) {
	if got := FormatHours(decimal.NewFromFloat(1.5)); got != "01:30" {
		t.Fatalf("FormatHours(1.5) = %s, want 01:30", got)
	}
	if got := FormatHours(decimal.Zero); got != "00:00" {
		t.Fatalf("FormatHours(0) = %s, want 00:00", got)
	}
}

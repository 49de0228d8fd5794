package core

import (
	"testing"
	"time"
)

func TestMonthKeyFor(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want MonthKey
	}{
		{
			name: "last second of january",
			in:   time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
			want: "2024-01",
		},
		{
			name: "first second of february",
			in:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want: "2024-02",
		},
		{
			name: "local zone ahead of UTC still lands in UTC month",
			in:   time.Date(2024, 2, 1, 3, 30, 0, 0, time.FixedZone("IST", 5*3600+1800)),
			want: "2024-01",
		},
		{
			name: "december",
			in:   time.Date(2023, 12, 15, 12, 0, 0, 0, time.UTC),
			want: "2023-12",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MonthKeyFor(tc.in); got != tc.want {
				t.Errorf("MonthKeyFor(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMonthKeyValidate(t *testing.T) {
	valid := []MonthKey{"2024-01", "1999-12", "2030-06"}
	for _, k := range valid {
		if err := k.Validate(); err != nil {
			t.Errorf("%q should validate, got %v", k, err)
		}
	}
	invalid := []MonthKey{"", "2024-13", "2024-00", "2024-1", "24-01", "2024/01", "2024-01-15"}
	for _, k := range invalid {
		if err := k.Validate(); err == nil {
			t.Errorf("%q should not validate", k)
		}
	}
}

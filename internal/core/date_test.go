package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"valid", "2024-02-29", NewDate(2024, time.February, 29), false},
		{"invalid calendar day", "2023-02-29", Date{}, true},
		{"wrong layout", "29/02/2024", Date{}, true},
		{"empty", "", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want.Time) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMonthContains(t *testing.T) {
	m := Month{Year: 2024, Month: time.March}

	if !m.Contains(NewDate(2024, time.March, 1)) {
		t.Error("first of month should be contained")
	}
	if !m.Contains(NewDate(2024, time.March, 31)) {
		t.Error("last of month should be contained")
	}
	if m.Contains(NewDate(2024, time.April, 1)) {
		t.Error("next month must not be contained")
	}
	if m.Contains(NewDate(2023, time.March, 15)) {
		t.Error("same month of another year must not be contained")
	}
}

func TestMonthLastDay(t *testing.T) {
	tests := []struct {
		month Month
		want  int
	}{
		{Month{2024, time.February}, 29},
		{Month{2023, time.February}, 28},
		{Month{2024, time.April}, 30},
		{Month{2024, time.December}, 31},
	}

	for _, tt := range tests {
		if got := tt.month.LastDay(); got != tt.want {
			t.Errorf("%s last day = %d, want %d", tt.month, got, tt.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.July, 9)
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2024-07-09"` {
		t.Fatalf("marshal = %s, want \"2024-07-09\"", raw)
	}

	var back Date
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", back, d)
	}

	if err := json.Unmarshal([]byte(`"not-a-date"`), &back); err == nil {
		t.Error("expected error for malformed date")
	}
}

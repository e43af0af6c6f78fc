package date

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseLoose(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "calendar date", in: "2024-05-01", want: "2024-05-01"},
		{name: "utc timestamp", in: "2024-05-01T00:00:00.000Z", want: "2024-05-01"},
		{name: "offset timestamp", in: "2024-05-01T23:30:00-02:00", want: "2024-05-02"},
		{name: "garbage", in: "tomorrow", wantErr: true},
		{name: "bad calendar", in: "2024-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLoose(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLoose(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLoose(%q): %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseLoose(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseOptionalEmpty(t *testing.T) {
	d, err := ParseOptional("  ")
	if err != nil || d != nil {
		t.Fatalf("ParseOptional(blank) = %v, %v; want nil, nil", d, err)
	}
	if OrEmpty(d) != "" {
		t.Errorf("OrEmpty(nil) = %q", OrEmpty(d))
	}
}

func TestUnmarshalJSONTimestamp(t *testing.T) {
	var v struct {
		Due *Date `json:"due"`
	}
	if err := json.Unmarshal([]byte(`{"due":"2023-12-31T18:00:00.000Z"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Due == nil || v.Due.String() != "2023-12-31" {
		t.Fatalf("due = %v", v.Due)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"due":"2023-12-31"}` {
		t.Errorf("marshal = %s", out)
	}
}

func TestRangeContains(t *testing.T) {
	start := New(2024, time.March, 1)
	end := New(2024, time.March, 31)
	inside := New(2024, time.March, 15)
	before := New(2024, time.February, 28)

	tests := []struct {
		name string
		r    Range
		d    *Date
		want bool
	}{
		{name: "open range nil date", r: Range{}, d: nil, want: true},
		{name: "bounded nil date", r: Range{Start: &start}, d: nil, want: false},
		{name: "inside", r: Range{Start: &start, End: &end}, d: &inside, want: true},
		{name: "on start", r: Range{Start: &start, End: &end}, d: &start, want: true},
		{name: "on end", r: Range{Start: &start, End: &end}, d: &end, want: true},
		{name: "before", r: Range{Start: &start}, d: &before, want: false},
		{name: "end only", r: Range{End: &start}, d: &before, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.d); got != tt.want {
				t.Errorf("Contains = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRangeValidate(t *testing.T) {
	a := New(2024, time.January, 2)
	b := New(2024, time.January, 1)
	if err := (Range{Start: &a, End: &b}).Validate(); err == nil {
		t.Error("expected error for inverted range")
	}
	if err := (Range{Start: &b, End: &a}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

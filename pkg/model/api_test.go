package model

import "testing"

func TestListOptionsClamp(t *testing.T) {
	tests := []struct {
		name          string
		in            ListOptions
		limit, offset int
	}{
		{"zero limit", ListOptions{}, DefaultPageSize, 0},
		{"negative limit", ListOptions{Limit: -1}, DefaultPageSize, 0},
		{"too large", ListOptions{Limit: 500}, MaxPageSize, 0},
		{"negative offset", ListOptions{Limit: 5, Offset: -2}, 5, 0},
		{"kept", ListOptions{Limit: 30, Offset: 60, Policy: "rr"}, 30, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.in
			o.Clamp()
			if o.Limit != tt.limit || o.Offset != tt.offset {
				t.Errorf("Clamp() = {%d %d}, want {%d %d}", o.Limit, o.Offset, tt.limit, tt.offset)
			}
			if o.Policy != tt.in.Policy {
				t.Errorf("Clamp changed Policy to %q", o.Policy)
			}
		})
	}
}

func TestListOptionsPage(t *testing.T) {
	o := ListOptions{Limit: 2, Offset: 2}
	if pg := o.Page(2, 5); !pg.HasMore || pg.Total != 5 || pg.Limit != 2 || pg.Offset != 2 {
		t.Errorf("Page(2, 5) = %+v", pg)
	}
	if pg := o.Page(1, 3); pg.HasMore {
		t.Errorf("Page(1, 3) reports more: %+v", pg)
	}
}

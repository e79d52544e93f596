package main

import (
	"reflect"
	"testing"
)

func TestParseMarks(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{"12.5,40", []float64{12.5, 40}, false},
		{" 3 , ,7 ", []float64{3, 7}, false},
		{"", nil, true},
		{"a,1", nil, true},
	}

	for _, tt := range tests {
		got, err := parseMarks(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMarks(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseMarks(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

package fluxgraph

import "testing"

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10m", 10 * 60 * 1000, false},
		{"1h", 60 * 60 * 1000, false},
		{"1d", 24 * 60 * 60 * 1000, false},
		{"30s", 30 * 1000, false},
		{"1H", 60 * 60 * 1000, false},
		{"", 0, true},
		{"m", 0, true},
		{"10x", 0, true},
		{"abcs", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q): expected error, got none", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDuration(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseDuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseDuration_ErrorKind(t *testing.T) {
	_, err := ParseDuration("")
	fe, ok := err.(*FlowError)
	if !ok {
		t.Fatalf("expected *FlowError, got %T", err)
	}
	if fe.Kind != KindMalformedDuration {
		t.Errorf("expected KindMalformedDuration, got %v", fe.Kind)
	}
}

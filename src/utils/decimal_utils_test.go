package utils

import "testing"

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"22.58", 22.58, true},
		{"22,58", 22.58, true},
		{"-3500", -3500, true},
		{"0", 0, true},
		{"1 234,5", 1234.5, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDecimal(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseDecimal(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got.InexactFloat64() != tt.want {
			t.Errorf("ParseDecimal(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseDecimalCommaAndDotAgree(t *testing.T) {
	comma, ok1 := ParseDecimal("22,58")
	dot, ok2 := ParseDecimal("22.58")
	if !ok1 || !ok2 {
		t.Fatal("expected both separators to parse")
	}
	if !comma.Equal(dot) {
		t.Errorf("comma form %v != dot form %v", comma, dot)
	}
}

func TestParseDecimalPtr(t *testing.T) {
	if got := ParseDecimalPtr(""); got != nil {
		t.Errorf("ParseDecimalPtr(\"\") = %v, want nil", *got)
	}
	got := ParseDecimalPtr("-15")
	if got == nil || *got != -15 {
		t.Errorf("ParseDecimalPtr(\"-15\") = %v, want -15", got)
	}
}

func TestAbsFloat(t *testing.T) {
	if AbsFloat(-3500) != 3500 {
		t.Error("AbsFloat(-3500) should be 3500")
	}
	if AbsFloat(12.5) != 12.5 {
		t.Error("AbsFloat(12.5) should be unchanged")
	}
}

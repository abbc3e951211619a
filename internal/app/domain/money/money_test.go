package money

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"19.99", "19.99", true},
		{"0", "0.00", true},
		{"5", "5.00", true},
		{"0.5", "0.50", true},
		{" 12.34 ", "12.34", true},
		{"", "", false},
		{"abc", "", false},
		{"1.999", "", false},
		{"-5.00", "", false},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.ok {
			if err != nil {
				t.Errorf("Parse(%q): unexpected error %v", tt.in, err)
				continue
			}
			if Format(got) != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.in, Format(got), tt.want)
			}
		} else if err == nil {
			t.Errorf("Parse(%q): expected error", tt.in)
		}
	}
}

func TestArithmeticIsExact(t *testing.T) {
	balance := MustParse("20.00")
	price := MustParse("15.00")

	rest := balance.Sub(price)
	if Format(rest) != "5.00" {
		t.Fatalf("20.00 - 15.00 = %s", Format(rest))
	}

	// The classic float trap: 0.1 + 0.2 must come out exact.
	sum := MustParse("0.10").Add(MustParse("0.20"))
	if Format(sum) != "0.30" {
		t.Fatalf("0.10 + 0.20 = %s", Format(sum))
	}

	if !MustParse("9.99").LessThan(MustParse("19.99")) {
		t.Fatalf("comparison broken")
	}
}

package textutil

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "Time waiting on Vendor", expect: "timewaitingonvendor"},
		{in: " Time  Waiting on\tvendor\n", expect: "timewaitingonvendor"},
		{in: "", expect: ""},
	}
	for _, test := range cases {
		if got := NormalizeName(test.in); got != test.expect {
			t.Fatalf("NormalizeName(%q) = %q, expected %q", test.in, got, test.expect)
		}
	}
}

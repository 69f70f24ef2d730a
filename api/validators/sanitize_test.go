package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  momo  ", 10, "momo"},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
		{"GH₵100", 3, "GH"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestSanitizePhone(t *testing.T) {
	cases := map[string]string{
		" 024 111-2222 ":   "0241112222",
		"+233 (24) 111 22": "+2332411122",
		"02+41":            "0241",
		"":                 "",
	}
	for in, want := range cases {
		if got := SanitizePhone(in); got != want {
			t.Fatalf("SanitizePhone(%q) = %q want %q", in, got, want)
		}
	}
	blank := "  - "
	if SanitizeOptionalPhone(&blank) != nil || SanitizeOptionalPhone(nil) != nil {
		t.Fatal("blank optional phone should be nil")
	}
}

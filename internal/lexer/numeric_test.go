package lexer

import "testing"

func TestParseNumericLiteral(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{"decimal", "200", 200},
		{"decimal leading zero is not octal", "0200", 200},
		{"decimal suffix", "0200d", 200},
		{"decimal prefix", "0d200", 200},
		{"decimal negative", "-42", -42},
		{"hex 0x", "0xC8", 200},
		{"hex 0X", "0XC8", 200},
		{"hex h suffix", "0c8h", 200},
		{"hex 0h prefix", "0hC8", 200},
		{"hex dollar", "$0C8", 200},
		{"octal q suffix", "310q", 200},
		{"octal o suffix", "310o", 200},
		{"octal 0o prefix", "0o310", 200},
		{"octal 0q prefix", "0q310", 200},
		{"binary b suffix", "11001000b", 200},
		{"binary b suffix underscored", "1100_1000b", 200},
		{"binary y suffix underscored", "1100_1000y", 200},
		{"binary 0b prefix", "0b11001000", 200},
		{"binary 0y prefix", "0y11001000", 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseNumericLiteral(tc.in)
			if err != nil {
				t.Fatalf("ParseNumericLiteral(%q) error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseNumericLiteral(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseNumericLiteralRejectsMalformedHex(t *testing.T) {
	if _, err := ParseNumericLiteral("$C8"); err == nil {
		t.Fatalf("expected error for hex literal missing leading 0 before letter digit")
	}
}

func TestParseNumericLiteralRejectsGarbage(t *testing.T) {
	if _, err := ParseNumericLiteral("not-a-number"); err == nil {
		t.Fatalf("expected error for non-numeric input")
	}
}

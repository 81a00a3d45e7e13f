package protocol

import "testing"

func TestParseToken(t *testing.T) {
	want := Token{0x0e, 0x65, 0x9b, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xce, 0x6e}

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain lowercase", "0e659b00112233445566778899aace6e", false},
		{"uppercase", "0E659B00112233445566778899AACE6E", false},
		{"colon separated", "0e:65:9b:00:11:22:33:44:55:66:77:88:99:aa:ce:6e", false},
		{"spaces and dashes", "0e659b00 11223344-55667788 99aace6e", false},
		{"too short", "0e659b00112233445566778899aace", true},
		{"too long", "0e659b00112233445566778899aace6e00", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsValidationError(err) {
					t.Errorf("error = %v, want validation error", err)
				}
				return
			}
			if got != want {
				t.Errorf("ParseToken() = %s, want %s", got, want)
			}
		})
	}
}

func TestTokenFromBytes(t *testing.T) {
	if _, err := TokenFromBytes(make([]byte, 16)); err != nil {
		t.Errorf("TokenFromBytes(16) error = %v", err)
	}
	for _, n := range []int{0, 15, 17, 32} {
		if _, err := TokenFromBytes(make([]byte, n)); !IsValidationError(err) {
			t.Errorf("TokenFromBytes(%d) error = %v, want validation error", n, err)
		}
	}
}

func TestToken_Masked(t *testing.T) {
	tok, _ := ParseToken("0e659b00112233445566778899aace6e")
	if got := tok.Masked(); got != "0e65************************ce6e" {
		t.Errorf("Masked() = %q", got)
	}
}

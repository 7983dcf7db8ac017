package utils

import (
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		payload string
		want    string
	}{
		{
			name:    "rfc 4231 case 2",
			secret:  "Jefe",
			payload: "what do ya want for nothing?",
			want:    "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sign(tt.secret, []byte(tt.payload))
			if got != tt.want {
				t.Errorf("Sign() = %v, want %v", got, tt.want)
			}
			if !VerifySignature(tt.secret, []byte(tt.payload), got) {
				t.Errorf("VerifySignature() = false, want true")
			}
			if VerifySignature("other", []byte(tt.payload), got) {
				t.Errorf("VerifySignature() with wrong secret = true, want false")
			}
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	b, _ := GenerateSecret(32)
	if len(a) != 32 || a == b {
		t.Errorf("GenerateSecret() = %q, %q", a, b)
	}
}

func TestEncryptRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	enc, err := Encrypt([]byte("access-token"), key)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	got, err := Decrypt(enc, key)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "access-token" {
		t.Errorf("Decrypt() = %v, want access-token", got)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "42", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "42" {
		t.Errorf("ValidateToken() user = %v, want 42", claims.UserID)
	}

	if _, err := ValidateToken("other", token); err == nil {
		t.Errorf("ValidateToken() with wrong key should fail")
	}
}

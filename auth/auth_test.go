package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func TestTokenIssuer_Roundtrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate("user-42")
	req.NoError(err)
	req.NotEmpty(token)

	userID, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("user-42", userID)
}

func TestTokenIssuer_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	_, err := issuer.Validate("not-a-token")
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokenIssuer_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("different-secret", time.Hour)

	token, err := issuer.Generate("user-42")
	req.NoError(err)

	_, err = other.Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokenIssuer_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Generate("user-42")
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestHashPassword_Roundtrip(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("S3cure&Enough!")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")

	match, err := ComparePassword("S3cure&Enough!", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(match)
}

func TestHashPassword_Salts_Are_Unique(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("S3cure&Enough!")
	req.NoError(err)
	second, err := HashPassword("S3cure&Enough!")
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name    string
		request SignupRequest
		wantErr bool
	}{
		{
			name:    "valid request",
			request: SignupRequest{Email: "a@b.com", FullName: "Alice", Password: "Str0ng&LongPass!"},
			wantErr: false,
		},
		{
			name:    "bad email",
			request: SignupRequest{Email: "nope", FullName: "Alice", Password: "Str0ng&LongPass!"},
			wantErr: true,
		},
		{
			name:    "too short",
			request: SignupRequest{Email: "a@b.com", FullName: "Alice", Password: "Sh0rt!"},
			wantErr: true,
		},
		{
			name:    "long but not complex",
			request: SignupRequest{Email: "a@b.com", FullName: "Alice", Password: "alllowercaseletters"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignup(tt.request)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

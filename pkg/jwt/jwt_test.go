package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateYParse(t *testing.T) {
	token, err := Generate("secreto", "user-1", "manager", "stock-ledger", 5)
	require.NoError(t, err)

	userID, role, err := Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "manager", role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	token, err := Generate("secreto", "user-1", "admin", "stock-ledger", 5)
	require.NoError(t, err)

	_, _, err = Parse("otro", token)
	assert.Error(t, err)
}

func TestParse_TokenExpirado(t *testing.T) {
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID: "user-1",
		Role:   "operator",
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secreto"))
	require.NoError(t, err)

	_, _, err = Parse("secreto", token)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "user-1", "admin", "x", 5)
	assert.Error(t, err)
	_, _, err = Parse("", "token")
	assert.Error(t, err)
}

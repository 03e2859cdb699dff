package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

var testJWT = auth.JWTConfig{Secret: "secreto-de-prueba", ExpMinutes: 5, Issuer: "stock-ledger-test"}

func TestRegisterYLogin(t *testing.T) {
	store := memory.NewStore()
	uc := auth.NewAuthUseCase(store.Users(), testJWT)
	ctx := context.Background()

	u, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "Ana@Example.com", Password: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, entity.RoleOperator, u.Role)
	assert.Equal(t, "ana@example.com", u.Name)

	res, err := uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "12345678"})
	require.NoError(t, err)
	userID, role, err := jwt.Parse(testJWT.Secret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, entity.RoleOperator, role)
}

func TestRegister_EmailDuplicado(t *testing.T) {
	store := memory.NewStore()
	uc := auth.NewAuthUseCase(store.Users(), testJWT)
	ctx := context.Background()

	_, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "ana@example.com", Password: "12345678", Role: entity.RoleAdmin})
	require.NoError(t, err)
	_, err = uc.RegisterUser(ctx, dto.RegisterRequest{Email: "ANA@example.com", Password: "12345678"})
	assert.True(t, errors.Is(err, domain.ErrEmailAlreadyExists))
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	store := memory.NewStore()
	uc := auth.NewAuthUseCase(store.Users(), testJWT)
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "ana@example.com", Password: "12345678"})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "otra-clave"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@example.com", Password: "12345678"})
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))
}

func TestLogin_UsuarioInactivo(t *testing.T) {
	store := memory.NewStore()
	uc := auth.NewAuthUseCase(store.Users(), testJWT)
	ctx := context.Background()
	u, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "ana@example.com", Password: "12345678"})
	require.NoError(t, err)

	stored, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	stored.Status = "inactive"
	require.NoError(t, store.Users().Update(ctx, stored))

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "12345678"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

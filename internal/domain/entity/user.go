package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
)

// ValidRole indica si r es un rol conocido.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleManager || r == RoleOperator
}

// User representa un usuario del sistema.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, manager, operator
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package valueobject

import "github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"

// Role - одна из двух фиксированных ролей платформы. Роль задаётся при регистрации и не меняется.
type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
)

func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleProfessional
}

func (r Role) String() string {
	return string(r)
}

func NewRole(role string) (Role, error) {
	r := Role(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "el rol debe ser client o professional")
	}
	return r, nil
}

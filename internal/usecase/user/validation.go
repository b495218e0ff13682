package user

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	domain "serverless-user-api/internal/domain/user"
)

// Validation aliases carrying the entity field limits.
const (
	NameTag  = "user_name"
	EmailTag = "user_email"
)

// RegisterAliases teaches v the user_name and user_email tags.
func RegisterAliases(v *validator.Validate) {
	v.RegisterAlias(NameTag, fmt.Sprintf("max=%d", domain.NameMaxLength))
	v.RegisterAlias(EmailTag, fmt.Sprintf("email,max=%d", domain.EmailMaxLength))
}

// NewValidator returns a validator with the user aliases registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	RegisterAliases(v)
	return v
}

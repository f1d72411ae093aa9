package dtos

import (
	"context"
)

type LoginDTO struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

func (d *LoginDTO) Ok(ctx context.Context) (map[string]string, bool) {
	errorMessages := validate(d)
	return errorMessages, len(errorMessages) == 0
}

type SignUpDTO struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,min=6"`
}

func (d *SignUpDTO) Ok(ctx context.Context) (map[string]string, bool) {
	errorMessages := validate(d)
	return errorMessages, len(errorMessages) == 0
}

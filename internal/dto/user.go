package dto

// UserCreateRequest registers a new account.
type UserCreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	IsAdmin  bool   `json:"is_admin"`
}

// UserUpdateRequest edits the display name and admin flag.
type UserUpdateRequest struct {
	Name    string `json:"name" validate:"required"`
	IsAdmin *bool  `json:"is_admin"`
}

// ResetPasswordRequest lets an administrator set a new password.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

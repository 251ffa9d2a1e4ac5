package model

type RegisterServiceRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,password"`
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=150"`
	Password *string `json:"password" validate:"omitempty,password"`
}

type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AccessTokenRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

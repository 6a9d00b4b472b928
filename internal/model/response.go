package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// TokenResponse is the login/refresh payload. Field names are part of the
// wire contract consumed by existing clients; keep them camelCase.
type TokenResponse struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

func NewUserResponse(u User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Username: u.Username, Roles: u.Roles}
}

package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

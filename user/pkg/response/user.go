package response

import (
	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type Login struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

package dto

import "github.com/taskflow/taskflow-api/internal/models"

// UserDTO is the lightweight user summary attached to projects and tasks.
// It never carries the password hash.
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

package requests

type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateToken struct {
	Name        string   `json:"name" binding:"required"`
	Permissions []string `json:"permissions"`
}

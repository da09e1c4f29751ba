package schemas

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Identity is who is calling, as resolved before the request reaches a handler.
type Identity struct {
	Username UserId `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsTeacher() bool {
	return i.Role == RoleTeacher
}

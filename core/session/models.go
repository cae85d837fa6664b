package session

import "github.com/trezcool/rollcall/core"

// Roles
const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleHOD      Role = "hod" // head of department
)

// LoginRoles are the roles a user may sign in with.
var LoginRoles = []Role{RoleStudent, RoleHOD, RoleLecturer}

type Role string

// Session is the signed in identity and its bearer credential.
// It is persisted as a single JSON blob in the CredentialStore.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     Role   `json:"userRole"`
	UserID   string `json:"userId"`
}

func (s Session) IsStudent() bool  { return s.Role == RoleStudent }
func (s Session) IsLecturer() bool { return s.Role == RoleLecturer }
func (s Session) IsHOD() bool      { return s.Role == RoleHOD }

// Credentials contains information needed to sign in.
type Credentials struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) clean() {
	c.Username = core.CleanString(c.Username)
}

var credentialsMessages = map[string]string{
	"username.notblank": "Enter username",
	"password.required": "Enter password",
}

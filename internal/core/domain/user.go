package domain

import "time"

// Seeded roles. Registration only accepts one of these.
const (
	RoleAdmin    = "Admin"
	RoleCustomer = "Customer"
	RoleOffice   = "Office"
)

// DefaultRoles lists the roles created at boot.
var DefaultRoles = []string{RoleAdmin, RoleCustomer, RoleOffice}

// User models an identity known to the identity provider.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	FullName     string     `json:"full_name,omitempty"`
	Dob          *time.Time `json:"dob,omitempty"`
	PasswordHash string     `json:"-"`
	Roles        []string   `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the display snapshot returned alongside a token pair.
type Profile struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	FullName string     `json:"full_name,omitempty"`
	Dob      *time.Time `json:"dob,omitempty"`
	JoinDate *time.Time `json:"join_date,omitempty"`
}

// NewProfile combines identity fields with the session's join date.
func NewProfile(u *User, s *Session) Profile {
	p := Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		FullName: u.FullName,
		Dob:      u.Dob,
	}
	if s != nil && !s.JoinDate.IsZero() {
		jd := s.JoinDate
		p.JoinDate = &jd
	}
	return p
}

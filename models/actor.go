package models

type UserRole string

const (
	RolePlayer    UserRole = "player"
	RoleOrganizer UserRole = "organizer"
	RoleSponsor   UserRole = "sponsor"
	RoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RolePlayer, RoleOrganizer, RoleSponsor, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated identity behind a mutating call.
type Actor struct {
	UserID int        `json:"user_id"`
	Roles  []UserRole `json:"roles"`
}

func (a Actor) HasRole(role UserRole) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

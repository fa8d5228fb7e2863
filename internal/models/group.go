package models

// Group represents a set of members who share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g. "Flatmates", "Goa Trip").
	Name string

	// Description is an optional longer description.
	Description string

	// Icon is the name of the icon shown for the group.
	Icon string

	// Members is the list of member user IDs.
	Members []string

	// CreatedBy is the user ID of the group creator, who acts as admin.
	CreatedBy string

	// InviteCode is an 8-character code others can use to join the group.
	InviteCode string

	// Active is false once the group has been deactivated. Inactive groups
	// are excluded from listings but their history is kept.
	Active bool

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// IsMember reports whether the given user belongs to the group.
func (g *Group) IsMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the given user created the group.
func (g *Group) IsAdmin(userID string) bool {
	return g.CreatedBy == userID
}

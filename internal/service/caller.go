package service

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Caller is the authenticated identity behind a request. System callers are
// verified payment callbacks and scheduled jobs.
type Caller struct {
	UID  string
	Role Role
}

func User(uid string) Caller { return Caller{UID: uid, Role: RoleUser} }

func Admin(uid string) Caller { return Caller{UID: uid, Role: RoleAdmin} }

func System() Caller { return Caller{UID: "system", Role: RoleSystem} }

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// Privileged callers act on entities they are not a party to.
func (c Caller) Privileged() bool { return c.Role == RoleAdmin || c.Role == RoleSystem }

func (c Caller) Anonymous() bool { return c.UID == "" }

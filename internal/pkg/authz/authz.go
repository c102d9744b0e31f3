// Package authz centralizes every role-based authorization decision for user
// management. Routes must not compare role strings themselves; they call
// CanManage / CanCreate so the ruleset cannot drift between endpoints.
package authz

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleSubAdmin         Role = "SUB_ADMIN"
	RoleSocietyHead      Role = "SOCIETY_HEAD"
	RoleSocialMedia      Role = "SOCIAL_MEDIA"
	RoleConsultant       Role = "CONSULTANT"
	RoleStudentOrganizer Role = "STUDENT_ORGANIZER"
	RoleStudent          Role = "STUDENT"
)

// roleKeys maps the role keys used by API clients to DB roles.
var roleKeys = map[string]Role{
	"student":              RoleStudent,
	"student-organizer":    RoleStudentOrganizer,
	"society-head":         RoleSocietyHead,
	"social-media-manager": RoleSocialMedia,
	"consultant":           RoleConsultant,
	"sub-admin":            RoleSubAdmin,
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSubAdmin, RoleSocietyHead, RoleSocialMedia,
		RoleConsultant, RoleStudentOrganizer, RoleStudent:
		return true
	}
	return false
}

// String returns the database representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsStaff reports whether the role is an employee role that requires
// employee ID and position at creation time.
func (r Role) IsStaff() bool {
	switch r {
	case RoleStudentOrganizer, RoleSocietyHead, RoleSocialMedia,
		RoleConsultant, RoleSubAdmin:
		return true
	}
	return false
}

// RoleFromKey resolves an API role key ("sub-admin", "student", ...) to a
// Role. ADMIN is deliberately absent: no endpoint may create an admin.
func RoleFromKey(key string) (Role, bool) {
	r, ok := roleKeys[key]
	return r, ok
}

// CanManage decides whether caller may manage (approve, block, delete) an
// existing account with the target role.
//
// Ruleset:
//   - ADMIN manages anyone except another ADMIN.
//   - SUB_ADMIN manages anyone except an ADMIN, including other SUB_ADMINs.
//   - STUDENT_ORGANIZER manages only STUDENT accounts.
//   - Everyone else: denied.
func CanManage(caller, target Role) bool {
	switch caller {
	case RoleAdmin:
		return target != RoleAdmin
	case RoleSubAdmin:
		return target != RoleAdmin
	case RoleStudentOrganizer:
		return target == RoleStudent
	}
	return false
}

// CanCreate decides whether caller may create a new account with the target
// role. Creation is stricter than management for SUB_ADMIN: a sub-admin may
// manage an existing peer but may not create one. Keep the two functions
// separate; the asymmetry is intentional.
func CanCreate(caller, target Role) bool {
	switch caller {
	case RoleAdmin:
		return target != RoleAdmin
	case RoleSubAdmin:
		return target != RoleAdmin && target != RoleSubAdmin
	case RoleStudentOrganizer:
		return target == RoleStudent
	}
	return false
}

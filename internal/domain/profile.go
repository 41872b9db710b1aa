package domain

// Role is the server-assigned account role carried in the access token.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func (r Role) IsValid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// APIMode selects how a teacher's AI features are billed.
type APIMode string

const (
	APIModeSchool   APIMode = "school"
	APIModePersonal APIMode = "personal"
)

func (m APIMode) IsValid() bool {
	return m == APIModeSchool || m == APIModePersonal
}

// TeacherProfile is the one-time bootstrap payload for setup_teacher_profile.
type TeacherProfile struct {
	FullName string
	Email    string
	APIMode  APIMode
}

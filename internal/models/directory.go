package models

// Student is the slice of the externally-owned student directory the
// retake engine reads: enough to resolve references and render lists.
type Student struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"fullName"`
	Phone    string `db:"phone" json:"phone"`
}

// Exam is the externally-owned exam catalog entry with its course context.
type Exam struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Number     int    `db:"number" json:"number"`
	CourseID   string `db:"course_id" json:"courseId"`
	CourseName string `db:"course_name" json:"courseName"`
}

// ManagementStatus is one value of the ordered, externally-managed
// workflow label catalog. Assignments store the name, not the id.
type ManagementStatus struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Color    string `db:"color" json:"color"`
	Position int    `db:"position" json:"position"`
}

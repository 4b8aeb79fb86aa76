package constant

// LectureType distinguishes a lecture from a section (tutorial/lab).
type LectureType string

const (
	LectureTypeLecture LectureType = "lecture"
	LectureTypeSection LectureType = "section"
)

// Valid reports whether t is a known lecture type.
func (t LectureType) Valid() bool {
	return t == LectureTypeLecture || t == LectureTypeSection
}

// DefaultColor returns the grid color used when none is given.
func (t LectureType) DefaultColor() string {
	if t == LectureTypeSection {
		return "#22c55e"
	}
	return "#3b82f6"
}

// Label is the human-readable name used in notifications.
func (t LectureType) Label() string {
	if t == LectureTypeSection {
		return "section"
	}
	return "lecture"
}

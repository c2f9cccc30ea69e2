package model

// Exam is a catalog entry for one question set available on the server.
type Exam struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
	TotalTime     int    `json:"total_time"` // seconds
}

// ExamDocument is the on-disk shape of a question set.
type ExamDocument struct {
	Title     string        `json:"title"`
	TotalTime int           `json:"totalTime,omitempty"` // seconds; 0 means "use size default"
	Questions []RawQuestion `json:"questions"`
}

// Default exam durations by question count. The 15-question short form gets
// 5 minutes, everything else 10. Content that needs another duration must
// carry an explicit totalTime.
const (
	ShortFormQuestionCount = 15
	ShortFormSeconds       = 300
	DefaultSeconds         = 600
)

// Duration returns the exam duration in seconds, applying the size-based
// default when the document carries none.
func (d ExamDocument) Duration() int {
	if d.TotalTime > 0 {
		return d.TotalTime
	}
	if len(d.Questions) == ShortFormQuestionCount {
		return ShortFormSeconds
	}
	return DefaultSeconds
}

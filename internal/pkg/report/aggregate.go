package report

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Attendance statuses as stored on attendance records.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// AttendanceEntry is one registered day for one student.
type AttendanceEntry struct {
	Date   time.Time `json:"date"`
	Status string    `json:"status"`
	Note   string    `json:"note,omitempty"`
}

// AttendanceSummary counts a set of attendance entries.
type AttendanceSummary struct {
	Total      int `json:"total"`
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Late       int `json:"late"`
	Excused    int `json:"excused"`
	Percentage int `json:"percentage"`
}

// Percentage is round(present/total*100), and 0 for an empty set.
func Percentage(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// SummarizeAttendance counts entries per status. Only "present" counts towards the percentage.
func SummarizeAttendance(entries []AttendanceEntry) AttendanceSummary {
	var s AttendanceSummary
	for _, e := range entries {
		s.Total++
		switch strings.ToLower(e.Status) {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		case StatusExcused:
			s.Excused++
		}
	}
	s.Percentage = Percentage(s.Present, s.Total)
	return s
}

// Grade buckets.
const (
	KindTest     = "test"
	KindTask     = "task"
	KindHomework = "homework"
)

// GradeEntry is one score for one subject.
type GradeEntry struct {
	Subject string  `json:"subject"`
	Kind    string  `json:"kind"`
	Score   float64 `json:"score"`
}

// Weights are the relative weights of the grade buckets in a subject average.
type Weights struct {
	Test     float64 `json:"test"`
	Task     float64 `json:"task"`
	Homework float64 `json:"homework"`
}

// DefaultWeights weighs tests highest, then tasks, then homework.
func DefaultWeights() Weights {
	return Weights{Test: 0.5, Task: 0.3, Homework: 0.2}
}

func (w Weights) of(kind string) float64 {
	switch kind {
	case KindTest:
		return w.Test
	case KindTask:
		return w.Task
	case KindHomework:
		return w.Homework
	}
	return 0
}

// Bucket is the mean of the scores of one kind within a subject.
type Bucket struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// SubjectResult is the per-subject outcome of SummarizeGrades.
type SubjectResult struct {
	Subject  string  `json:"subject"`
	Tests    Bucket  `json:"tests"`
	Tasks    Bucket  `json:"tasks"`
	Homework Bucket  `json:"homework"`
	Average  float64 `json:"average"`
}

// GradeSummary lists subject results alphabetically with an overall mean.
type GradeSummary struct {
	Subjects []SubjectResult `json:"subjects"`
	Overall  float64         `json:"overall"`
}

type bucketSum struct {
	sum   float64
	count int
}

// SummarizeGrades buckets scores per subject and kind. A subject average is the
// weighted mean of its non-empty buckets, with the weights renormalised over the
// buckets present. Averages are rounded to one decimal.
func SummarizeGrades(entries []GradeEntry, w Weights) GradeSummary {
	perSubject := map[string]map[string]*bucketSum{}
	for _, e := range entries {
		kind := strings.ToLower(e.Kind)
		if kind != KindTest && kind != KindTask && kind != KindHomework {
			continue
		}
		subject := strings.TrimSpace(e.Subject)
		if perSubject[subject] == nil {
			perSubject[subject] = map[string]*bucketSum{}
		}
		b := perSubject[subject][kind]
		if b == nil {
			b = &bucketSum{}
			perSubject[subject][kind] = b
		}
		b.sum += e.Score
		b.count++
	}

	subjects := make([]string, 0, len(perSubject))
	for s := range perSubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	summary := GradeSummary{Subjects: make([]SubjectResult, 0, len(subjects))}
	var overall float64
	for _, subject := range subjects {
		buckets := perSubject[subject]
		res := SubjectResult{
			Subject:  subject,
			Tests:    toBucket(buckets[KindTest]),
			Tasks:    toBucket(buckets[KindTask]),
			Homework: toBucket(buckets[KindHomework]),
		}

		var weighted, weightSum float64
		for _, kind := range []string{KindTest, KindTask, KindHomework} {
			b, weight := buckets[kind], w.of(kind)
			if b == nil || weight == 0 {
				continue
			}
			weighted += weight * (b.sum / float64(b.count))
			weightSum += weight
		}
		if weightSum == 0 {
			// only zero-weight buckets: fall back to the plain mean
			var sum float64
			var n int
			for _, b := range buckets {
				sum += b.sum
				n += b.count
			}
			res.Average = round1(sum / float64(n))
		} else {
			res.Average = round1(weighted / weightSum)
		}

		overall += res.Average
		summary.Subjects = append(summary.Subjects, res)
	}

	if len(summary.Subjects) > 0 {
		summary.Overall = round1(overall / float64(len(summary.Subjects)))
	}
	return summary
}

func toBucket(b *bucketSum) Bucket {
	if b == nil || b.count == 0 {
		return Bucket{}
	}
	return Bucket{Count: b.count, Average: round1(b.sum / float64(b.count))}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Behavior categories.
const (
	BehaviorPositive = "positive"
	BehaviorNegative = "negative"
	BehaviorNeutral  = "neutral"
)

// BehaviorEntry is one behaviour note.
type BehaviorEntry struct {
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

// BehaviorSummary counts behaviour notes per category, newest first.
type BehaviorSummary struct {
	Positive int             `json:"positive"`
	Negative int             `json:"negative"`
	Neutral  int             `json:"neutral"`
	Entries  []BehaviorEntry `json:"entries"`
}

func SummarizeBehavior(entries []BehaviorEntry) BehaviorSummary {
	s := BehaviorSummary{Entries: append([]BehaviorEntry(nil), entries...)}
	for _, e := range entries {
		switch strings.ToLower(e.Category) {
		case BehaviorPositive:
			s.Positive++
		case BehaviorNegative:
			s.Negative++
		default:
			s.Neutral++
		}
	}
	sort.SliceStable(s.Entries, func(i, j int) bool { return s.Entries[i].Date.After(s.Entries[j].Date) })
	return s
}

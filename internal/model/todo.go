package model

import "time"

type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

type Recurrence int

const (
	RecurrenceNone Recurrence = iota
	RecurrenceDaily
	RecurrenceWeekly
	RecurrenceMonthly
)

func (r Recurrence) IsValid() bool {
	return r >= RecurrenceNone && r <= RecurrenceMonthly
}

func (r Recurrence) String() string {
	switch r {
	case RecurrenceDaily:
		return "daily"
	case RecurrenceWeekly:
		return "weekly"
	case RecurrenceMonthly:
		return "monthly"
	default:
		return "none"
	}
}

// NextDeadline returns the deadline of the instance that follows one due at
// base. The second result is false for RecurrenceNone.
//
// RecurrenceValue (target weekday or day of month) does not influence the
// result; weekly is always +7 days and monthly is +1 calendar month.
func (r Recurrence) NextDeadline(base time.Time) (time.Time, bool) {
	switch r {
	case RecurrenceDaily:
		return base.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return base.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return addMonth(base), true
	default:
		return time.Time{}, false
	}
}

// addMonth moves t one calendar month forward, clamping the day to the end
// of the target month (Jan 31 -> Feb 28) instead of overflowing like AddDate.
func addMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

type Todo struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	IsCompleted     bool       `json:"isCompleted"`
	UserID          int64      `json:"userId"`
	Deadline        *time.Time `json:"deadline"`
	Priority        Priority   `json:"priority"`
	Category        *string    `json:"category"`
	OrderIndex      int        `json:"orderIndex"`
	Recurrence      Recurrence `json:"recurrence"`
	RecurrenceValue *int       `json:"recurrenceValue"`
	CreatedAt       time.Time  `json:"createdAt"`
	SubTasks        []SubTask  `json:"subTasks"`
}

// Successor builds the next, not yet persisted, instance of a recurring todo.
// now is used as the base when the todo has no deadline.
func (t Todo) Successor(now time.Time) (Todo, bool) {
	base := now
	if t.Deadline != nil {
		base = *t.Deadline
	}
	next, ok := t.Recurrence.NextDeadline(base)
	if !ok {
		return Todo{}, false
	}
	return Todo{
		Title:           t.Title,
		UserID:          t.UserID,
		Deadline:        &next,
		Priority:        t.Priority,
		Category:        t.Category,
		Recurrence:      t.Recurrence,
		RecurrenceValue: t.RecurrenceValue,
		SubTasks:        []SubTask{},
	}, true
}

type SubTask struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
	TodoItemID  int64  `json:"todoItemId"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type TodoStats struct {
	TotalCompleted       int             `json:"totalCompleted"`
	TotalCount           int             `json:"totalCount"`
	CompletionRate       float64         `json:"completionRate"`
	CategoryDistribution []CategoryCount `json:"categoryDistribution"`
	CompletionTrend      []DailyCount    `json:"completionTrend"`
}

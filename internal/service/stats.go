package service

import (
	"time"

	"github.com/jaekwang-park/planner-api/internal/model"
)

const trendDays = 7

// ComputeStats aggregates a user's todos. The completion trend covers the
// trendDays UTC days ending today, oldest first, and buckets completed todos
// by the day they were created.
func ComputeStats(todos []model.Todo, now time.Time) model.TodoStats {
	stats := model.TodoStats{
		TotalCount:           len(todos),
		CategoryDistribution: []model.CategoryCount{},
		CompletionTrend:      make([]model.DailyCount, 0, trendDays),
	}

	categoryIdx := make(map[string]int)
	completedByDay := make(map[string]int)
	for _, t := range todos {
		if !t.IsCompleted {
			continue
		}
		stats.TotalCompleted++
		completedByDay[t.CreatedAt.UTC().Format(time.DateOnly)]++

		if t.Category == nil || *t.Category == "" {
			continue
		}
		if i, ok := categoryIdx[*t.Category]; ok {
			stats.CategoryDistribution[i].Count++
			continue
		}
		categoryIdx[*t.Category] = len(stats.CategoryDistribution)
		stats.CategoryDistribution = append(stats.CategoryDistribution, model.CategoryCount{
			Category: *t.Category,
			Count:    1,
		})
	}

	if stats.TotalCount > 0 {
		stats.CompletionRate = float64(stats.TotalCompleted) / float64(stats.TotalCount) * 100
	}

	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for i := trendDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(time.DateOnly)
		stats.CompletionTrend = append(stats.CompletionTrend, model.DailyCount{
			Date:  day,
			Count: completedByDay[day],
		})
	}

	return stats
}

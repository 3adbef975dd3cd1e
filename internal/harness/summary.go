package harness

type Summary struct {
	Total                  int     `json:"total_tests"`
	Passed                 int     `json:"passed"`
	Failed                 int     `json:"failed"`
	ClarificationRequested int     `json:"clarification_requested"`
	PassRate               float64 `json:"pass_rate"`
	AverageExecutionTime   float64 `json:"average_execution_time"`
}

// Summarize folds results into aggregate metrics. Rates and averages are zero
// for an empty run.
func Summarize(results []TestResult) Summary {
	summary := Summary{Total: len(results)}
	var totalSeconds float64
	for _, result := range results {
		switch result.Status {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
		case StatusClarificationRequested:
			summary.ClarificationRequested++
		}
		totalSeconds += result.ExecutionTimeSeconds()
	}
	if summary.Total > 0 {
		summary.PassRate = float64(summary.Passed) / float64(summary.Total) * 100
		summary.AverageExecutionTime = totalSeconds / float64(summary.Total)
	}
	return summary
}

// Percent is n as a percentage of the run, zero for an empty run.
func (s Summary) Percent(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) / float64(s.Total) * 100
}

type Tier string

const (
	TierOutstanding      Tier = "outstanding"
	TierExcellent        Tier = "excellent"
	TierGood             Tier = "good"
	TierFair             Tier = "fair"
	TierNeedsDevelopment Tier = "needs_development"
)

func TierFor(passRate float64) Tier {
	switch {
	case passRate >= 90:
		return TierOutstanding
	case passRate >= 80:
		return TierExcellent
	case passRate >= 70:
		return TierGood
	case passRate >= 60:
		return TierFair
	default:
		return TierNeedsDevelopment
	}
}

func (s Summary) Tier() Tier {
	return TierFor(s.PassRate)
}

// Headline is the short banner used in rendered reports.
func (t Tier) Headline() string {
	switch t {
	case TierOutstanding:
		return "OUTSTANDING PERFORMANCE"
	case TierExcellent:
		return "EXCELLENT PERFORMANCE"
	case TierGood:
		return "GOOD PERFORMANCE"
	case TierFair:
		return "NEEDS IMPROVEMENT"
	default:
		return "REQUIRES OPTIMIZATION"
	}
}

// Verdict is the closing line of the console assessment.
func (t Tier) Verdict() string {
	switch t {
	case TierOutstanding:
		return "WORLD-CLASS: the assistant demonstrates exceptional capabilities"
	case TierExcellent:
		return "EXCELLENT: strong performance with minor optimization opportunities"
	case TierGood:
		return "GOOD: solid performance on core capabilities"
	case TierFair:
		return "FAIR: adequate baseline with improvement potential"
	default:
		return "NEEDS DEVELOPMENT: focus on prompt engineering and schema coverage"
	}
}

package outcome

import "time"

// Summary aggregates a batch of outcomes for the executive report
type Summary struct {
	Scenarios      int            `json:"scenarios"`
	ByStatus       map[Status]int `json:"by_status"`
	SuccessRate    float64        `json:"success_rate"`
	RowsValidated  int64          `json:"rows_validated"`
	RowsMatched    int64          `json:"rows_matched"`
	RowsNotMatched int64          `json:"rows_not_matched"`
	RowMatchRate   float64        `json:"row_match_rate"`
	Duration       time.Duration  `json:"duration_ns"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Summarize counts outcomes by status and totals the evaluated rows. The
// success rate is the share of scenarios that passed.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{
		Scenarios:   len(outcomes),
		ByStatus:    make(map[Status]int, len(Statuses)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, status := range Statuses {
		s.ByStatus[status] = 0
	}

	for _, o := range outcomes {
		s.ByStatus[o.Status]++
		s.Duration += o.Duration
		if !o.Evaluated() {
			continue
		}
		s.RowsValidated += o.TotalRows
		s.RowsMatched += o.MatchCount
		s.RowsNotMatched += o.NotMatched()
	}

	s.SuccessRate = MatchPercentage(int64(s.ByStatus[StatusPass]), int64(s.Scenarios))
	s.RowMatchRate = MatchPercentage(s.RowsMatched, s.RowsValidated)
	return s
}

// Problems returns the number of scenarios that should fail a batch run
func (s Summary) Problems() int {
	return s.ByStatus[StatusFail] + s.ByStatus[StatusError] + s.ByStatus[StatusTimeout]
}

package service

import (
	"github.com/predictmaint/predictmaint/internal/domain"
)

// Summarize computes the totals shown on the dashboard stat cards.
func Summarize(rows []domain.Prediction) domain.Stats {
	if len(rows) == 0 {
		return domain.Stats{}
	}

	machines := make(map[string]struct{})
	var sum float64
	latest := rows[0].Timestamp
	for _, p := range rows {
		machines[p.MachineID] = struct{}{}
		sum += p.Prediction
		if p.Timestamp.After(latest) {
			latest = p.Timestamp
		}
	}

	return domain.Stats{
		TotalPredictions: len(rows),
		UniqueMachines:   len(machines),
		AvgPrediction:    round(sum/float64(len(rows)), 4),
		LatestPrediction: &latest,
	}
}

// SummarizeMachines returns one entry per machine in first-seen order. The
// last prediction is taken from the newest timestamp; ties keep the earlier row.
func SummarizeMachines(rows []domain.Prediction) []domain.MachineSummary {
	index := make(map[string]int)
	out := make([]domain.MachineSummary, 0)

	for _, p := range rows {
		i, ok := index[p.MachineID]
		if !ok {
			i = len(out)
			index[p.MachineID] = i
			out = append(out, domain.MachineSummary{MachineID: p.MachineID})
		}

		m := &out[i]
		m.PredictionCount++
		if m.LastTimestamp == nil || p.Timestamp.After(*m.LastTimestamp) {
			ts, v := p.Timestamp, p.Prediction
			m.LastTimestamp = &ts
			m.LastPrediction = &v
		}
	}
	return out
}

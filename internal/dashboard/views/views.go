// Package views holds the page-level derivations the dashboard renders:
// slicing, filtering and the per-machine counts.
package views

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/predictmaint/predictmaint/internal/dashboard/models"
)

const RecentLimit = 5

const (
	MsgDashboardFailed = "Failed to load dashboard data"
	MsgHistoryFailed   = "Failed to load prediction history"
	MsgMachinesFailed  = "Failed to load machines"
	MsgMachineFailed   = "Failed to load machine data"
	MsgPredictFailed   = "Failed to make prediction. Please try again."
	MsgExportFailed    = "Failed to export history"

	MsgNoPredictions    = "No predictions yet"
	MsgNoMatches        = "No matching predictions"
	MsgNoMachines       = "No machines found"
	MsgNoMachineHistory = "No predictions for this machine"
)

// Reverse returns a reversed copy.
func Reverse[T any](in []T) []T {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}

// Recent returns the last n entries of history, newest first.
func Recent(history []models.PredictionHistory, n int) []models.PredictionHistory {
	if n < 0 {
		n = 0
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return Reverse(history)
}

// FilterByMachine keeps entries whose machine id contains term, ignoring case.
func FilterByMachine(items []models.PredictionHistory, term string) []models.PredictionHistory {
	if term == "" {
		return items
	}
	needle := strings.ToLower(term)
	out := make([]models.PredictionHistory, 0, len(items))
	for _, p := range items {
		if strings.Contains(strings.ToLower(p.MachineID), needle) {
			out = append(out, p)
		}
	}
	return out
}

// EmptyHistoryMessage tells "nothing matched" apart from "nothing exists".
func EmptyHistoryMessage(term string) string {
	if term != "" {
		return MsgNoMatches
	}
	return MsgNoPredictions
}

type MachineStats struct {
	Total  int
	Needed int
	OK     int
	// Rate is the share needing maintenance, in percent with one decimal.
	Rate float64
}

func SummarizeMachine(items []models.PredictionHistory) MachineStats {
	st := MachineStats{Total: len(items)}
	for _, p := range items {
		if p.NeedsMaintenance {
			st.Needed++
		}
	}
	st.OK = st.Total - st.Needed
	if st.Total > 0 {
		st.Rate = math.Round(float64(st.Needed)/float64(st.Total)*1000) / 10
	}
	return st
}

// OneDecimal formats an optional reading, "N/A" when absent.
func OneDecimal(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}

// LastValue formats a machine's last prediction with four decimals.
func LastValue(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.4f", *v)
}

// Percent renders a 0..1 confidence as a percentage with one decimal.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// LatestLabel is the text of the "latest prediction" stat card.
func LatestLabel(s *models.Stats) string {
	if s == nil || s.LatestPrediction == nil || s.LatestPrediction.IsZero() {
		return "No data"
	}
	return FormatTime(s.LatestPrediction.Time)
}

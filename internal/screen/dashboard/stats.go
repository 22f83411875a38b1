package dashboard

import (
	"math"

	"github.com/jwalitptl/innoguard/internal/model"
)

// NoDisease is shown when the page has no patients.
const NoDisease = "N/A"

// PageStats summarizes the loaded page only; TotalPatients is the exception
// and prefers the backend's total.
type PageStats struct {
	TotalPatients     int    `json:"total_patients"`
	AvgAge            int    `json:"avg_age"`
	MostCommonDisease string `json:"most_common_disease"`
}

func ComputeStats(patients []model.PatientRecord, total int) PageStats {
	stats := PageStats{TotalPatients: total, MostCommonDisease: NoDisease}
	if stats.TotalPatients == 0 {
		stats.TotalPatients = len(patients)
	}
	if len(patients) == 0 {
		return stats
	}

	var sum float64
	counts := make(map[string]int)
	var order []string
	for _, p := range patients {
		sum += p.Age
		if _, seen := counts[p.Disease]; !seen {
			order = append(order, p.Disease)
		}
		counts[p.Disease]++
	}
	stats.AvgAge = int(math.Floor(sum/float64(len(patients)) + 0.5))

	// ties go to the disease seen first
	best := order[0]
	for _, d := range order[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	stats.MostCommonDisease = best
	return stats
}

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
)

func renderDashboard(w io.Writer, v dashboard.View) {
	fmt.Fprintln(w, "InnoGuard")
	if v.Role != "" {
		fmt.Fprintf(w, "Role: %s\n", v.Role)
	}
	if v.Error != "" {
		fmt.Fprintf(w, "! %s\n", v.Error)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Patients: %d\n", v.Stats.TotalPatients)
	fmt.Fprintf(w, "Avg. Age: %d\n", v.Stats.AvgAge)
	fmt.Fprintf(w, "Most Common Disease: %s\n", v.Stats.MostCommonDisease)
	fmt.Fprintln(w)

	if len(v.Table.Headers) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(v.Table.Headers, "\t"))
		for _, row := range v.Table.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	prev, next := "[p]revious", "[n]ext"
	if !v.CanPrevious {
		prev = strings.Repeat("-", len(prev))
	}
	if !v.CanNext {
		next = strings.Repeat("-", len(next))
	}
	fmt.Fprintf(w, "%s  %s  %s\n", prev, v.PageLabel, next)
}

package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/me/schedsim/pkg/model"
)

// printTick writes one timeline line.
func printTick(w io.Writer, rec model.TickRecord, name string) {
	who := "-"
	if rec.PID != 0 {
		who = fmt.Sprintf("%d (%s)", rec.PID, name)
	}
	line := fmt.Sprintf("%5d  %-20s  %-8s", rec.Tick, who, rec.Event)
	if rec.Note != "" {
		line += "  " + rec.Note
	}
	fmt.Fprintln(w, line)
}

// printTimeline writes every tick of a stored run.
func printTimeline(w io.Writer, run *model.Run) {
	names := make(map[int]string, len(run.Processes))
	for _, p := range run.Processes {
		names[p.PID] = p.Name
	}
	for _, rec := range run.Timeline {
		printTick(w, rec, names[rec.PID])
	}
}

// printSummary writes the run header and the per-process statistics table.
func printSummary(w io.Writer, run *model.Run) {
	fmt.Fprintf(w, "\nWorkload:  %s\n", run.Workload)
	fmt.Fprintf(w, "Policy:    %s (%s)\n", run.PolicyName, run.Policy)
	fmt.Fprintf(w, "Ticks:     %d (%d idle, %d context switches)\n", run.Ticks, run.IdleTicks, run.ContextSwitches)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", run.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-4s  %-16s  %7s  %8s  %4s  %5s  %6s  %10s  %8s  %5s  %4s\n",
		"PID", "NAME", "ARRIVAL", "LIFESPAN", "PRIO", "START", "FINISH", "TURNAROUND", "RESPONSE", "READY", "WAIT")
	for _, p := range run.Processes {
		fmt.Fprintf(w, "%-4d  %-16s  %7d  %8d  %4d  %5s  %6s  %10s  %8s  %5d  %4d\n",
			p.PID, p.Name, p.Arrival, p.Lifespan, p.BasePriority,
			orDash(p.Start), orDash(p.Finish), orDash(p.Turnaround), orDash(p.Response),
			p.ReadyTicks, p.WaitTicks)
	}
	fmt.Fprintf(w, "\nAverage turnaround: %.2f\n", run.AverageTurnaround())
	fmt.Fprintf(w, "Average waiting:    %.2f\n", run.AverageWaiting())
}

func orDash(n int) string {
	if n < 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/nrfperiph/blestack/link"
)

// statusTickInterval is how often the console status table refreshes.
const statusTickInterval = 5 * time.Second

// statusLoop prints a one-row table of the Link-Layer's current state, in
// the same periodic-table style ptpcheck's "sources" view uses, so bled can
// be watched from a terminal without a separate query command.
func statusLoop(ctx context.Context, ll *link.LinkLayer, devAddr string) error {
	ticker := time.NewTicker(statusTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			printStatus(ll, devAddr)
		}
	}
}

func printStatus(ll *link.LinkLayer, devAddr string) {
	state := ll.StateName()
	coloredState := state
	switch state {
	case "connected":
		coloredState = color.GreenString(state)
	case "advertising":
		coloredState = color.YellowString(state)
	default:
		coloredState = color.RedString(state)
	}

	interval := "-"
	if iv, ok := ll.ConnectionInterval(); ok {
		interval = (time.Duration(iv.Micros()) * time.Microsecond).String()
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"address", "state", "conn interval"})
	table.Append([]string{devAddr, coloredState, interval})
	table.Render()
}

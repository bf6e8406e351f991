package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"dustsweep-go/internal/execution"
	"dustsweep-go/internal/holding"
)

func discoverAction(c *cli.Context) error {
	s, err := open(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.orch.Discover(c.Context); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	printHoldings(c.App.Writer, s.orch.Holdings(), s.orch.Selection(), s.currency)
	fmt.Fprintln(c.App.Writer, s.orch.Status())
	return nil
}

func sweepAction(c *cli.Context) error {
	s, err := open(c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.orch.Discover(c.Context); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(s.orch.Holdings()) == 0 {
		fmt.Fprintln(c.App.Writer, s.orch.Status())
		return nil
	}
	if !c.Bool("yes") {
		proceed, err := prompt(bufio.NewReader(c.App.Reader), c.App.Writer, s.orch, s.currency)
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Fprintln(c.App.Writer, "nothing converted")
			return nil
		}
	}

	report, err := s.orch.Convert(c.Context)
	printReport(c.App.Writer, report)
	if err != nil {
		return cli.Exit(fmt.Sprintf("sweep aborted: %s", err), 1)
	}
	return nil
}

// prompt lets the user toggle holdings by number until they convert or quit.
func prompt(reader *bufio.Reader, w io.Writer, orch *execution.Orchestrator, currency string) (bool, error) {
	for {
		holdings := orch.Holdings()
		printHoldings(w, holdings, orch.Selection(), currency)
		fmt.Fprint(w, "Toggle by number, a) all, n) none, c) convert, q) quit: ")
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		choice := strings.ToLower(strings.TrimSpace(line))
		switch choice {
		case "c":
			return true, nil
		case "q":
			return false, nil
		case "a", "n":
			for _, h := range holdings {
				if err := orch.Select(h.AssetID, choice == "a"); err != nil {
					return false, err
				}
			}
		default:
			n, convErr := strconv.Atoi(choice)
			if convErr != nil || n < 1 || n > len(holdings) {
				fmt.Fprintln(w, "unknown option")
			} else if _, err := orch.Toggle(holdings[n-1].AssetID); err != nil {
				return false, err
			}
		}
		if err == io.EOF {
			return false, nil
		}
	}
}

func printHoldings(w io.Writer, holdings []holding.Holding, selected map[string]bool, currency string) {
	if len(holdings) == 0 {
		return
	}
	fmt.Fprintln(w, "\n--- Dust holdings ---")
	for i, h := range holdings {
		mark := " "
		if selected[h.AssetID] {
			mark = "x"
		}
		fmt.Fprintf(w, "%2d) [%s] %-8s %-24s %s  %s\n", i+1, mark, h.Symbol, h.DisplayName, h.Amount.String(), h.DisplayValue(currency))
	}
}

func printReport(w io.Writer, report execution.Report) {
	fmt.Fprintf(w, "\nrun %s: %s\n", report.RunID, report.State)
	for _, leg := range report.Legs {
		switch leg.Status {
		case execution.LegSucceeded:
			fmt.Fprintf(w, "  %-24s converted  %s\n", leg.Name, execution.ExplorerURL(leg.Signature))
		case execution.LegFailed:
			fmt.Fprintf(w, "  %-24s failed     %s\n", leg.Name, leg.Reason)
		default:
			fmt.Fprintf(w, "  %-24s %s\n", leg.Name, leg.Status)
		}
	}
	if report.Err != nil && len(report.Succeeded) > 0 {
		fmt.Fprintf(w, "already converted, deselect on the next run: %s\n", strings.Join(report.Succeeded, ", "))
	}
}

package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show run history",
	Long:  `Display the runs recorded in the project's run log, newest first.`,
	Run:   runLog,
}

var (
	logOneline bool
	logLimit   int
)

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show each run on a single line")
	logCmd.Flags().IntVarP(&logLimit, "n", "n", 0, "Limit the number of runs to show")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	runs, err := c.requireStore().ListRuns(logLimit)
	if err != nil {
		exitError("failed to get run log: %v", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs yet")
		return
	}

	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	for _, run := range runs {
		if logOneline {
			yellow.Printf("%s ", run.ShortID())
			fmt.Printf("%-10s %s", run.Operation, run.Output)
			if run.FingerprintAfter != "" && !run.Changed() {
				faint.Print(" (unchanged)")
			}
			fmt.Println()
			continue
		}

		yellow.Printf("run %s", run.ID)
		color.New(color.FgCyan).Printf(" #%d\n", run.Seq)
		fmt.Printf("Date:   %s (%s)\n", run.Timestamp.Local().Format("Mon Jan 2 15:04:05 2006"), humanize.Time(run.Timestamp))
		fmt.Printf("\n    %s", run.Operation)
		for _, a := range run.Args {
			fmt.Printf(" %s", a)
		}
		fmt.Println()
		if run.Output != "" {
			fmt.Printf("    -> %s\n", run.Output)
		}
		if run.FingerprintAfter != "" && !run.Changed() {
			faint.Println("    dataset unchanged")
		}
		fmt.Println()
	}
}

package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/kilupskalvis/cocokit/internal/store"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [run]",
	Short: "Show run details",
	Long:  `Show details about a recorded run, including its report. Defaults to the latest run.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runShow,
}

func runShow(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	st := c.requireStore()
	var run *models.Run
	if len(args) == 0 {
		runs, err := st.ListRuns(1)
		if err != nil {
			exitError("%v", err)
		}
		if len(runs) == 0 {
			exitError("no runs yet")
		}
		run = runs[0]
	} else {
		var err error
		run, err = st.GetRun(args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			run, err = st.GetRunByShortID(args[0])
		}
		if err != nil {
			exitError("%v", err)
		}
	}
	printRun(run)
}

func printRun(run *models.Run) {
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	yellow.Printf("run %s\n", run.ID)
	fmt.Printf("Seq:       %d\n", run.Seq)
	fmt.Printf("Date:      %s\n", run.Timestamp.Local().Format("Mon Jan 2 15:04:05 2006"))
	fmt.Printf("Operation: %s\n", run.Operation)
	if len(run.Args) > 0 {
		fmt.Printf("Args:      %v\n", run.Args)
	}
	if run.Input != "" {
		fmt.Printf("Input:     %s\n", run.Input)
	}
	if run.Output != "" {
		fmt.Printf("Output:    %s\n", run.Output)
	}
	if run.FingerprintBefore != "" {
		fmt.Printf("Before:    %s\n", shortFingerprint(run.FingerprintBefore))
	}
	if run.FingerprintAfter != "" {
		fmt.Print("After:     ")
		if run.Changed() {
			green.Println(shortFingerprint(run.FingerprintAfter))
		} else {
			fmt.Printf("%s (unchanged)\n", shortFingerprint(run.FingerprintAfter))
		}
	}

	if len(run.Report) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, run.Report, "", "  "); err != nil {
		buf.Reset()
		buf.Write(run.Report)
	}
	fmt.Printf("\nReport:\n%s\n", buf.String())
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

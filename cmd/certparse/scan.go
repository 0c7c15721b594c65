package main

import (
	"fmt"
	"sort"

	"github.com/sensiblebit/certparse/internal"
	"github.com/sensiblebit/certparse/internal/certstore"
	"github.com/spf13/cobra"
)

var (
	dbPath       string
	scanVerbose  bool
	scanFailures bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan and catalog certificate decode outcomes",
	Long:  "Scan a file or directory for certificates, run the strict decoder over each, and print a summary of how many passed and why the rest failed. Use --db to persist the catalog.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default: in-memory)")
	scanCmd.Flags().BoolVar(&scanVerbose, "all", false, "List every record, not just the summary")
	scanCmd.Flags().BoolVar(&scanFailures, "failures", false, "List rejected certificates with their failure trails")
	registerCompletion(scanCmd, completionInput{
		flagName:     "db",
		completeFunc: fileCompletion,
	})
}

func runScan(cmd *cobra.Command, args []string) error {
	passwords, err := internal.ProcessPasswords(passwordList, passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	opts, err := resolveOptions()
	if err != nil {
		return err
	}

	store := certstore.NewMemStore()
	if dbPath != "" {
		// Merge earlier runs so the catalog accumulates across invocations.
		if err := certstore.LoadFromSQLite(store, dbPath); err != nil {
			fmt.Printf("Starting fresh catalog at %s\n", dbPath)
		}
	}

	if err := internal.ScanPath(args[0], passwords, opts, store); err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}

	if dbPath != "" {
		if err := certstore.SaveToSQLite(store, dbPath); err != nil {
			return fmt.Errorf("saving catalog: %w", err)
		}
	}

	printSummary(store)
	return nil
}

func printSummary(store *certstore.MemStore) {
	summary := store.Summarize()
	fmt.Printf("\nScanned %d certificate(s)%s\n", summary.Total, internal.ScanAnnotation(summary.Invalid))
	if summary.Total > 0 {
		fmt.Printf("  Valid:   %d\n", summary.Valid)
		fmt.Printf("  Invalid: %d\n", summary.Invalid)
	}
	if summary.Invalid > 0 {
		verdicts := make([]string, 0, len(summary.ByVerdict))
		for v := range summary.ByVerdict {
			verdicts = append(verdicts, v)
		}
		sort.Strings(verdicts)
		for _, v := range verdicts {
			fmt.Printf("    %-45s %d\n", v, summary.ByVerdict[v])
		}
	}

	if scanFailures {
		for _, rec := range store.Invalid() {
			fmt.Printf("\n%s (%s)\n  %s\n", rec.Source, rec.Format, rec.Verdict)
			for _, e := range rec.Errors {
				fmt.Printf("    %s\n", e)
			}
		}
	}
	if scanVerbose {
		for _, rec := range store.All() {
			fmt.Printf("%s  %-8s %s %s\n", rec.Fingerprint[:16], rec.Format, rec.Verdict, rec.Source)
		}
	}
}

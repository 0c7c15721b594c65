package main

import (
	"fmt"
	"os"

	"github.com/sensiblebit/certparse/internal"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode and display certificates from a file",
	Long:  "Run the strict decoder over every certificate in a file (PEM, DER, PKCS#7, PKCS#12, or JKS) and show the decoded fields, or the exact failure trail for certificates the decoder rejects.",
	Example: `  certparse inspect cert.pem
  certparse inspect bundle.p7b --format json
  certparse inspect legacy.der --profile lenient`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")
	registerCompletion(inspectCmd, completionInput{
		flagName:     "format",
		completeFunc: fixedCompletion("text", "json"),
	})
}

func runInspect(cmd *cobra.Command, args []string) error {
	passwords, err := internal.ProcessPasswords(passwordList, passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	opts, err := resolveOptions()
	if err != nil {
		return err
	}

	results, err := internal.InspectFile(args[0], passwords, opts)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResults(results, inspectFormat, internal.ColorEnabled(os.Stdout))
	if err != nil {
		return err
	}

	fmt.Print(output)
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/sensiblebit/certparse"
	"github.com/sensiblebit/certparse/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	logLevel     string
	passwordList []string
	passwordFile string
	profileName  string
	profilePath  string
)

var rootCmd = &cobra.Command{
	Use:   "certparse",
	Short: "Strict X.509 certificate decoder",
	Long:  "Decode DER certificates with strict structural validation and report exactly where malformed ones fail.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetupLogger(logLevel)
	},
}

func init() {
	// Accept snake_case spellings of multiword flags.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSliceVarP(&passwordList, "passwords", "p", nil, "Passwords for encrypted containers")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "File containing passwords, one per line")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Parsing profile name (default: strict)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile-config", "", "Path to profile config YAML")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(scanCmd)

	registerCompletion(rootCmd, completionInput{
		flagName:     "profile",
		completeFunc: fixedCompletion("strict", "lenient"),
	})
	registerCompletion(rootCmd, completionInput{
		flagName:     "log-level",
		completeFunc: fixedCompletion("debug", "info", "warn", "error"),
	})
}

// resolveOptions turns the persistent profile flags into parser options.
func resolveOptions() (certparse.Options, error) {
	profiles := internal.BuiltinProfiles()
	if profilePath != "" {
		loaded, err := internal.LoadProfiles(profilePath)
		if err != nil {
			return certparse.Options{}, fmt.Errorf("loading profiles: %w", err)
		}
		profiles = loaded
	}
	return profiles.Options(profileName)
}

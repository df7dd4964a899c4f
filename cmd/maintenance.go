package main

import (
	"fmt"

	"github.com/BinLe1988/payday-server/pkg/words"

	"github.com/spf13/cobra"
)

var seedFile string

var seedWordsCmd = &cobra.Command{
	Use:   "seed-words",
	Short: "Import sensitive words from a YAML file",
	Long: `Import sensitive words from a YAML file keyed by category.
Words that already exist are skipped.`,
	Example: `  payday seed-words -f configs/sensitive_words.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := words.LoadSeedFile(seedFile)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "payday-cli", false)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.words.Seed(cmd.Context(), seeds)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d words\n", n, len(seeds))
		return nil
	},
}

var scanLegacyCmd = &cobra.Command{
	Use:   "scan-legacy",
	Short: "Flag salary records encrypted before per-record salts",
	Long: `Flag salary records whose encryption salt is the legacy sentinel.
Their amounts cannot be decrypted and must be re-entered by the owner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "payday-cli", false)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.salary.ScanLegacy(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "flagged %d legacy salary records\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedWordsCmd, scanLegacyCmd)
	seedWordsCmd.Flags().StringVarP(&seedFile, "file", "f", "configs/sensitive_words.yaml", "YAML word file")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recondiag/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with diagnosis rulesets",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <ruleset>",
	Short: "Parse and validate a ruleset file",
	Long: `Load a ruleset document, compile every condition, and report the ones
the restricted expression grammar rejects. Exits non-zero if any rule
is malformed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesCheck,
}

func init() {
	rulesCmd.AddCommand(rulesCheckCmd)
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	set, err := rules.LoadFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dimension:   %s\n", set.Dimension)
	fmt.Fprintf(out, "Flag column: %s\n", set.FlagColumn)
	fmt.Fprintf(out, "Rules:       %d\n", len(set.Rules))

	errs := set.Validate()
	if len(errs) == 0 {
		fmt.Fprintln(out, "All conditions compile.")
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(out, "BAD: %v\n", e)
	}
	return fmt.Errorf("%d of %d rules are malformed", len(errs), len(set.Rules))
}

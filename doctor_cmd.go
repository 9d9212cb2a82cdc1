package main

import (
	"errors"
	"fmt"

	"github.com/dgnsrekt/aloud/internal/speech"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check which speech backends are installed",
	Long:    paragraph(fmt.Sprintf("\n%s for the speech library and the command-line tools aloud can drive, and show which backend would be used.", keyword("Check"))),
	Example: paragraph("aloud doctor\naloud doctor --backend espeak"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine := newEngine()
		statuses := engine.CheckDependencies()
		fmt.Fprint(cmd.OutOrStdout(), speech.DependencyReport(statuses, engine.Kind()))
		if err := engine.InitError(); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), faintStyle.Render("Speech library: "+err.Error()))
		}
		if !speech.Usable(statuses) {
			return errors.New("no usable speech backend found")
		}
		return nil
	},
}

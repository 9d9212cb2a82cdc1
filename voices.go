package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgnsrekt/aloud/internal/speech"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"
)

const (
	idColumnWidth     = 30
	localeColumnWidth = 10
	tableWidth        = 80
)

var (
	voicesJSON bool

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List the voices of the selected backend",
		Long:    paragraph(fmt.Sprintf("\n%s the voices the selected speech backend can use, in backend order.", keyword("List"))),
		Example: paragraph("aloud voices\naloud voices --json\naloud voices --backend espeak"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVoices(commandContext(cmd), newEngine(), cmd.OutOrStdout(), voicesJSON)
		},
	}
)

func init() {
	voicesCmd.Flags().BoolVar(&voicesJSON, "json", false, "print voices as JSON")
}

func printVoices(ctx context.Context, engine *speech.Engine, w io.Writer, asJSON bool) error {
	voices, err := engine.Voices(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		if voices == nil {
			voices = []speech.Voice{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(voices)
	}
	_, err = io.WriteString(w, voiceTable(voices))
	return err
}

// voiceTable renders voices as fixed-width ID and Locale columns followed by
// the name.
func voiceTable(voices []speech.Voice) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(voiceRow("ID", "Locale", "Name")))
	b.WriteString("\n")
	b.WriteString(faintStyle.Render(strings.Repeat("-", tableWidth)))
	b.WriteString("\n")
	for _, v := range voices {
		b.WriteString(voiceRow(v.ID, v.Locale, v.Name))
		b.WriteString("\n")
	}
	return b.String()
}

func voiceRow(id, locale, name string) string {
	return fmt.Sprintf("%s | %s | %s", column(id, idColumnWidth), column(locale, localeColumnWidth), name)
}

// column fits s into width cells, truncating with an ellipsis.
func column(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = truncate.StringWithTail(s, uint(width), "…")
	}
	return runewidth.FillRight(s, width)
}

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/leafdoc/internal/engine/taxonomy"
)

var labelsJSON bool

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Print the model label contract and diagnosis table",
	Long: `Prints every model output index with its class label and diagnosis record.
Uses the table from engine.table_path when set. Does not load the model.`,
	Args: cobra.NoArgs,
	RunE: runLabels,
}

func init() {
	labelsCmd.Flags().BoolVar(&labelsJSON, "json", false, "print the table as JSON")
}

type labelRow struct {
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Plant   string `json:"plant"`
	Status  string `json:"status"`
	Disease string `json:"disease"`
}

func runLabels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tax, err := taxonomy.Load(cfg.Engine.TablePath)
	if err != nil {
		return err
	}

	labels := tax.Labels()
	rows := make([]labelRow, len(labels))
	for i, l := range labels {
		rec, _ := tax.Record(l)
		rows[i] = labelRow{Index: i, Label: l, Plant: rec.Plant, Status: string(rec.Status), Disease: rec.Disease}
	}

	w := cmd.OutOrStdout()
	if labelsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	header := lipgloss.NewStyle().Bold(true)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header.Render("#")+"\t"+header.Render("LABEL")+"\t"+header.Render("PLANT")+"\t"+header.Render("STATUS")+"\t"+header.Render("DISEASE"))
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Index, r.Label, r.Plant, r.Status, r.Disease)
	}
	return tw.Flush()
}

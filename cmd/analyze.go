// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/fft"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// frameReport is one row of the analyze output.
type frameReport struct {
	Index   int      `json:"index"`
	AtMs    int64    `json:"at_ms"`
	PeaksHz []int    `json:"peaks_hz"`
	Notes   []string `json:"notes"`
	Dropped int      `json:"dropped,omitempty"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Print the peaks and notes of every frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, session, err := a.loadWAV(args[0])
			if err != nil {
				return err
			}
			analyzer := session.Analyzer()
			results, err := analyzer.AnalyzeBuffer(cmd.Context(), buf)
			if err != nil {
				return err
			}

			cfg := analyzer.Config()
			reports := make([]frameReport, len(results))
			for i, res := range results {
				reports[i] = report(res, cfg)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			fmt.Println(renderReports(reports))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func report(res analysis.FrameResult, cfg analysis.Config) frameReport {
	r := frameReport{
		Index:   res.Index,
		AtMs:    (time.Duration(res.Index) * cfg.FramePeriod()).Milliseconds(),
		PeaksHz: make([]int, len(res.Peaks)),
		Notes:   make([]string, len(res.Notes)),
		Dropped: res.Dropped,
	}
	for i, bin := range res.Peaks {
		r.PeaksHz[i] = int(fft.BinFrequency(bin, cfg.SampleRate, cfg.FrameSize) + 0.5)
	}
	for i, ev := range res.Notes {
		r.Notes[i] = ev.String()
	}
	return r
}

func renderReports(reports []frameReport) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("frame", "time", "peaks (Hz)", "notes").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, r := range reports {
		peaks := make([]string, len(r.PeaksHz))
		for i, hz := range r.PeaksHz {
			peaks[i] = strconv.Itoa(hz)
		}
		notes := strings.Join(r.Notes, " ")
		if notes == "" {
			notes = "-"
		}
		t.Row(strconv.Itoa(r.Index), fmt.Sprintf("%.2fs", float64(r.AtMs)/1000), strings.Join(peaks, " "), notes)
	}
	return t.Render()
}

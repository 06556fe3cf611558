package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/chat"
	"github.com/xhad/docchat/pkg/ingest"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// ingestProgress renders pipeline progress as one bar per stage.
type ingestProgress struct {
	stage ingest.Stage
	bar   *progressbar.ProgressBar
}

func (p *ingestProgress) update(pr ingest.Progress) {
	if pr.Stage != p.stage {
		p.finish()
		p.stage = pr.Stage
		desc := "📄 Extracting documents..."
		if pr.Stage == ingest.StageIndex {
			desc = "💾 Embedding and indexing..."
		}
		p.bar = getProgressBar(pr.Total, desc)
	}
	p.bar.Set(pr.Done)
}

func (p *ingestProgress) finish() {
	if p.bar != nil {
		p.bar.Finish()
		fmt.Println()
		p.bar = nil
	}
}

func printReport(report *ingest.Report) {
	if report == nil {
		return
	}
	for _, name := range report.Failed {
		color.Red("✗ %s could not be read", name)
	}
	if len(report.Committed) == 0 {
		color.Yellow("Nothing was indexed")
		return
	}
	var parts []string
	for _, c := range report.Committed {
		parts = append(parts, fmt.Sprintf("%d %s", report.Documents[c], c))
	}
	color.Green("✓ Ingested %d document(s): %s", report.Ingested, strings.Join(parts, ", "))
	if report.Partial {
		color.Yellow("Indexing stopped early; only the categories above were saved")
	}
}

func printReply(reply *chat.Reply) {
	if reply.Warning != "" {
		color.Yellow("⚠ %s", reply.Warning)
	}
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	assistantPrompt("Assistant: %s\n", strings.TrimSpace(reply.Text))
}

func printResults(results []models.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}
	for i, r := range results {
		color.Cyan("[%d] %s (%s, chunk %d) distance %.4f", i+1, r.Source, r.Category, r.ChunkIndex, r.Distance)
		fmt.Println(snippet(r.Content, 300))
		fmt.Println()
	}
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// readUploads loads files from disk as uploads.
func readUploads(paths []string) ([]models.Upload, error) {
	uploads := make([]models.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		uploads = append(uploads, models.Upload{Name: filepath.Base(path), Data: data})
	}
	return uploads, nil
}

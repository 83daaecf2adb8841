package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/junsooki/rawconv/internal/batch"
	"github.com/junsooki/rawconv/internal/decoder"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printInfo writes one table row per container.
func printInfo(w io.Writer, infos []batch.HeaderInfo, layout decoder.Layout) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("FILE", "WIDTH", "HEIGHT", "SIZE", "EXPECTED", "STATUS")

	for _, info := range infos {
		t.Row(infoRow(info, layout)...)
	}
	fmt.Fprintln(w, t.Render())
}

func infoRow(info batch.HeaderInfo, layout decoder.Layout) []string {
	name := filepath.Base(info.Path)
	size := strconv.FormatInt(info.Size, 10)
	if info.Err != nil {
		return []string{name, "-", "-", size, "-", decoder.Kind(info.Err)}
	}
	expected := info.Expected(layout)
	status := "ok"
	switch {
	case info.Size < expected:
		status = fmt.Sprintf("truncated (%d short)", expected-info.Size)
	case info.Size > expected:
		status = fmt.Sprintf("trailing %d bytes", info.Size-expected)
	}
	return []string{
		name,
		strconv.FormatUint(uint64(info.Header.Width), 10),
		strconv.FormatUint(uint64(info.Header.Height), 10),
		size,
		strconv.FormatInt(expected, 10),
		status,
	}
}

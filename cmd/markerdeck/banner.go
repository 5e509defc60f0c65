package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type bannerInfo struct {
	Version   string
	Address   string
	Stash     string
	DataDir   string
	DBDriver  string
	Origins   []string
	CacheSize int64
}

func printBanner(w io.Writer, info bannerInfo) {
	fmt.Fprintln(w, renderBanner(info, isTerminal(w)))
}

func renderBanner(info bannerInfo, color bool) string {
	stash := info.Stash
	if stash == "" {
		stash = "not configured"
	}
	origins := strings.Join(info.Origins, ", ")
	if origins == "" {
		origins = "none"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if !color {
		tw.SetStyle(table.StyleLight)
	}
	tw.SetTitle("MARKERDECK " + info.Version)
	tw.AppendRows([]table.Row{
		{"API", "http://" + info.Address},
		{"Stash", stash},
		{"Data dir", info.DataDir},
		{"Database", info.DBDriver},
		{"CORS origins", origins},
		{"Screenshot cache", humanize.Bytes(uint64(info.CacheSize))},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignLeft},
	})
	if color {
		tw.Style().Title.Colors = text.Colors{text.Bold, text.FgCyan}
	}
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

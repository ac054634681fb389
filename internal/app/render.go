package app

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/rbright/piano/internal/ipc"
	"github.com/rbright/piano/internal/station"
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderStatus prints state, station, and song. Plain output is one
// "key: value" line per known field, state first.
func renderStatus(resp ipc.Response, pretty bool) string {
	rows := [][]string{{"state", resp.State}}
	if resp.Station != nil {
		rows = append(rows, []string{"station", stationLabel(*resp.Station)})
	}
	if resp.Song != nil && !resp.Song.Empty() {
		rows = append(rows, []string{"song", resp.Song.String()})
		if resp.Song.Album != "" {
			rows = append(rows, []string{"album", resp.Song.Album})
		}
	}

	if pretty {
		return renderTable([]string{"Field", "Value"}, rows, nil)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row[0]+": "+row[1])
	}
	return strings.Join(lines, "\n")
}

// renderStations lists the catalog, marking current with '*'.
func renderStations(stations []station.Station, current *station.Station, pretty bool) string {
	rows := make([][]string, 0, len(stations))
	for _, st := range stations {
		mark := ""
		if current != nil && current.Index == st.Index {
			mark = "*"
		}
		rows = append(rows, []string{mark, strconv.Itoa(st.Index), st.Name})
	}

	if pretty {
		return renderTable([]string{"", "#", "Station"}, rows, []text.Align{text.AlignCenter, text.AlignRight, text.AlignLeft})
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%1s %s\t%s", row[0], row[1], row[2]))
	}
	return strings.Join(lines, "\n")
}

func stationLabel(st station.Station) string {
	if st.Name == "" {
		return fmt.Sprintf("#%d", st.Index)
	}
	return fmt.Sprintf("%s (#%d)", st.Name, st.Index)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(aligns))
	for i, align := range aligns {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	if len(configs) > 0 {
		tw.SetColumnConfigs(configs)
	}
	return tw.Render()
}

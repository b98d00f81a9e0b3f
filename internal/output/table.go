package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jbweber/hvconn/internal/inventory"
)

// TableFormatter formats results as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatHost formats a host summary as a two-column table.
func (f *TableFormatter) FormatHost(host *inventory.HostSummary) (string, error) {
	rows := [][]string{
		{"Driver:", host.Driver},
		{"Version:", fmt.Sprintf("%s (%d)", host.Version, host.VersionCode)},
		{"Hostname:", host.Hostname},
		{"URI:", host.URI},
		{"CPU model:", host.Node.Model},
		{"CPUs:", strconv.Itoa(int(host.Node.CPUs))},
		{"CPU frequency:", fmt.Sprintf("%d MHz", host.Node.MHz)},
		{"NUMA nodes:", strconv.Itoa(int(host.Node.NUMANodes))},
		{"Topology:", fmt.Sprintf("%d socket(s) x %d core(s) x %d thread(s)", host.Node.Sockets, host.Node.Cores, host.Node.Threads)},
		{"Memory:", fmt.Sprintf("%d KiB", host.Node.MemoryKiB)},
	}
	if host.MaxVCPUs > 0 {
		rows = append(rows, []string{"Max vCPUs:", strconv.Itoa(host.MaxVCPUs)})
	}
	if host.Arch != "" {
		rows = append(rows, []string{"Arch:", host.Arch})
	}
	if host.CPUModel != "" {
		rows = append(rows, []string{"Host CPU:", host.CPUModel})
	}

	return render(nil, rows), nil
}

// FormatDomain formats a single domain as a table row.
func (f *TableFormatter) FormatDomain(row inventory.DomainRow) (string, error) {
	return f.FormatDomainList([]inventory.DomainRow{row})
}

// FormatDomainList formats domains as a table.
func (f *TableFormatter) FormatDomainList(rows []inventory.DomainRow) (string, error) {
	if len(rows) == 0 {
		return "No domains found\n", nil
	}

	var header []string
	if !f.NoHeaders {
		header = []string{"ID", "NAME", "STATE", "UUID"}
	}

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		id := "-"
		if r.ID >= 0 {
			id = strconv.Itoa(int(r.ID))
		}
		data = append(data, []string{id, r.Name, r.State, r.UUID})
	}

	return render(header, data), nil
}

// render draws a borderless, left-aligned table.
func render(header []string, data [][]string) string {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	if header != nil {
		table.SetHeader(header)
	}
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(data)
	table.Render()

	return buf.String()
}

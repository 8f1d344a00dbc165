package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/srodi/ures/pkg/types"
)

// Report sections selectable for output.
const (
	SectionProcesses = "processes"
	SectionUsers     = "users"
	SectionCommands  = "commands"
	SectionCPUs      = "cpus"
)

// AllSections lists every section in print order.
var AllSections = []string{SectionProcesses, SectionUsers, SectionCommands, SectionCPUs}

// userHz is the tick rate of process user/system times.
const userHz = 100

// RenderConfig controls the textual output.
type RenderConfig struct {
	Sections    []string // nil prints every section
	Human       bool
	HeaderEvery int
	Color       bool
	Now         time.Time
	System      *types.SystemMemory
}

func (cfg RenderConfig) enabled(section string) bool {
	if cfg.Sections == nil {
		return true
	}
	for _, s := range cfg.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Render writes the selected reports as tables. The CPU section and the C#
// column are skipped when the snapshot has no per-CPU data.
func Render(w io.Writer, r Reports, cfg RenderConfig) error {
	var buf bytes.Buffer
	if !cfg.Now.IsZero() {
		fmt.Fprintf(&buf, "Report generated at %s\n", cfg.Now.Format("2006-01-02 15:04:05"))
	}
	if cfg.System != nil {
		writeSystem(&buf, *cfg.System, cfg.Human)
	}

	if cfg.enabled(SectionProcesses) {
		unit := " (in KiB)"
		if cfg.Human {
			unit = ""
		}
		writeLabel(&buf, "Process memory usage sorted by unique resident set size"+unit+":")
		buf.WriteString(processTable(r, cfg))
		buf.WriteString("\n")
	}
	if cfg.enabled(SectionUsers) {
		writeLabel(&buf, "Memory usage per user:")
		buf.WriteString(groupTable("USER", r.Users, cfg))
		buf.WriteString("\n")
	}
	if cfg.enabled(SectionCommands) {
		writeLabel(&buf, "Memory usage by processes with same names:")
		buf.WriteString(groupTable("CMD", r.Commands, cfg))
		buf.WriteString("\n")
	}
	if r.HasCPU && cfg.enabled(SectionCPUs) {
		writeLabel(&buf, "Memory usage per CPU (main threads only):")
		buf.WriteString(groupTable("CPU", r.CPUs, cfg))
		buf.WriteString("\n")
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeSystem(buf *bytes.Buffer, sys types.SystemMemory, human bool) {
	writeLabel(buf, "System wide memory information:")
	fmt.Fprintf(buf, "RAM: %s (%s free [%.2f%%])\n",
		formatTotal(sys.TotalBytes, human), formatTotal(sys.UserspaceFree, human), percent(sys.UserspaceFree, sys.TotalBytes))
	if sys.SwapTotalBytes == 0 {
		buf.WriteString("Swap: None\n")
		return
	}
	fmt.Fprintf(buf, "Swap: %s (%s free [%.2f%%])\n",
		formatTotal(sys.SwapTotalBytes, human), formatTotal(sys.SwapFreeBytes, human), percent(sys.SwapFreeBytes, sys.SwapTotalBytes))
}

func writeLabel(buf *bytes.Buffer, s string) {
	buf.WriteString("\n")
	buf.WriteString(s)
	buf.WriteString("\n")
	buf.WriteString(strings.Repeat("-", len(s)))
	buf.WriteString("\n")
}

// statusColumns are the /proc/PID/status figures, labelled in lower case and
// ordered by label.
var statusColumns = []struct {
	label string
	value func(*types.StatusMemory) uint64
}{
	{"data", func(s *types.StatusMemory) uint64 { return s.DataBytes }},
	{"exe", func(s *types.StatusMemory) uint64 { return s.ExeBytes }},
	{"hwres", func(s *types.StatusMemory) uint64 { return s.HWMBytes }},
	{"lckd", func(s *types.StatusMemory) uint64 { return s.LockedBytes }},
	{"lib", func(s *types.StatusMemory) uint64 { return s.LibBytes }},
	{"pte", func(s *types.StatusMemory) uint64 { return s.PTEBytes }},
	{"stack", func(s *types.StatusMemory) uint64 { return s.StackBytes }},
	{"virt-p", func(s *types.StatusMemory) uint64 { return s.PeakBytes }},
}

func hasStatus(profiles []types.ProcessMemoryProfile) bool {
	for _, p := range profiles {
		if p.Status != nil {
			return true
		}
	}
	return false
}

func processTable(r Reports, cfg RenderConfig) string {
	withStatus := hasStatus(r.Processes)
	header := table.Row{"PID", "USER", "URES", "RSS", "SHR", "VIRT"}
	if withStatus {
		for _, c := range statusColumns {
			header = append(header, c.label)
		}
	}
	header = append(header, "MINFLT", "MAJFLT")
	if r.HasCPU {
		header = append(header, "C#")
	}
	lastNumeric := len(header)
	header = append(header, "STARTED", "S", "CMD (n threads)")

	t := newTable(cfg.Color)
	t.AppendHeader(header)
	numeric := []int{1}
	for n := 3; n <= lastNumeric; n++ {
		numeric = append(numeric, n)
	}
	t.SetColumnConfigs(rightAligned(numeric...))

	for i, p := range r.Processes {
		if cfg.HeaderEvery > 0 && i > 0 && i%cfg.HeaderEvery == 0 {
			t.AppendSeparator()
			t.AppendRow(header)
		}
		row := table.Row{
			p.PID,
			p.User,
			formatSize(p.URESBytes, cfg.Human),
			formatSize(p.TotalRSSBytes, cfg.Human),
			formatSize(p.TotalRSSBytes-min(p.URESBytes, p.TotalRSSBytes), cfg.Human),
			formatSize(p.VirtualBytes, cfg.Human),
		}
		if withStatus {
			for _, c := range statusColumns {
				if p.Status == nil {
					row = append(row, "-")
					continue
				}
				row = append(row, formatSize(c.value(p.Status), cfg.Human))
			}
		}
		row = append(row, p.MinorFaults, p.MajorFaults)
		if r.HasCPU {
			row = append(row, formatCPU(p.LastCPU))
		}
		row = append(row, formatStarted(p.StartTime, cfg.Now), p.State, formatCommand(p.Process))
		t.AppendRow(row)
	}
	return t.Render()
}

func groupTable(keyHeader string, groups []types.GroupSummary, cfg RenderConfig) string {
	t := newTable(cfg.Color)
	t.AppendHeader(table.Row{keyHeader, "COUNT", "USER-TIME", "SYS-TIME", "URES", "RSS"})
	t.SetColumnConfigs(rightAligned(2, 3, 4, 5, 6))
	for _, g := range groups {
		t.AppendRow(table.Row{
			g.Key,
			g.MemberCount,
			formatTicks(g.UserTicks),
			formatTicks(g.SystemTicks),
			formatTotal(g.TotalURESBytes, cfg.Human),
			formatTotal(g.TotalRSSBytes, cfg.Human),
		})
	}
	return t.Render()
}

func newTable(color bool) table.Writer {
	t := table.NewWriter()
	style := table.StyleDefault
	if color {
		style = table.StyleColoredDark
	}
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = false
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)
	return t
}

func rightAligned(columns ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	return configs
}

// formatSize renders per-process sizes in KiB, or in binary units when human is set.
func formatSize(b uint64, human bool) string {
	if human {
		return units.BytesSize(float64(b))
	}
	return strconv.FormatUint((b+512)/1024, 10)
}

// formatTotal renders group and system totals in MiB, or in binary units when human is set.
func formatTotal(b uint64, human bool) string {
	if human {
		return units.BytesSize(float64(b))
	}
	return fmt.Sprintf("%.2f MiB", float64(b)/(1024*1024))
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// formatTicks renders USER_HZ ticks as 42s, 3m07s or 2h05m09s.
func formatTicks(ticks uint64) string {
	secs := ticks / userHz
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	minutes := secs / 60
	secs %= 60
	if minutes < 60 {
		return fmt.Sprintf("%dm%02ds", minutes, secs)
	}
	return fmt.Sprintf("%dh%02dm%02ds", minutes/60, minutes%60, secs)
}

// formatStarted shows a clock time for processes started within the last day
// and a date for older ones.
func formatStarted(start, now time.Time) string {
	if start.IsZero() {
		return "-"
	}
	if now.IsZero() {
		now = time.Now()
	}
	if now.Sub(start) < 24*time.Hour {
		return start.Format("15:04:05")
	}
	return start.Format("2006-01-02")
}

func formatCPU(cpu *int) string {
	if cpu == nil {
		return "-"
	}
	return strconv.Itoa(*cpu)
}

func formatCommand(p types.Process) string {
	if p.Threads > 1 {
		return fmt.Sprintf("%s (%d T)", p.Comm, p.Threads)
	}
	return p.Comm
}

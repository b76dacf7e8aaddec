package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/util"
)

var tokenColumns = []Column{
	{Header: "Input", Align: AlignRight},
	{Header: "Output", Align: AlignRight},
	{Header: "Cache Create", Align: AlignRight},
	{Header: "Cache Read", Align: AlignRight},
	{Header: "Total Tokens", Align: AlignRight},
	{Header: "Cost (USD)", Align: AlignRight},
}

func tokenCells(t model.TokenCounts, cost float64) []string {
	return []string{
		util.FormatNumber(t.InputTokens),
		util.FormatNumber(t.OutputTokens),
		util.FormatNumber(t.CacheCreationTokens),
		util.FormatNumber(t.CacheReadTokens),
		util.FormatNumber(t.Total()),
		util.FormatCurrency(cost),
	}
}

func modelList(models []string) string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = util.SimplifyModelName(m)
	}
	return strings.Join(util.SortModels(names), ", ")
}

func periodTable(label string) *Table {
	cols := append([]Column{{Header: label}, {Header: "Models"}}, tokenColumns...)
	return NewTable(cols...)
}

func (r *Renderer) addBreakdown(t *Table, breakdowns []model.ModelBreakdown) {
	if !r.breakdown {
		return
	}
	for _, b := range breakdowns {
		t.AddSubRow(append([]string{"", "└ " + util.SimplifyModelName(b.Model)}, tokenCells(b.TokenCounts, b.Cost)...)...)
	}
}

func (r *Renderer) Summary(s *model.UsageSummary) error {
	return r.emit(s, func() *Table {
		t := NewTable(Column{Header: "Metric"}, Column{Header: "Value", Align: AlignRight})
		t.AddRow("Total cost", util.FormatCurrency(s.TotalCost))
		t.AddRow("Input tokens", util.FormatNumber(s.TotalInputTokens))
		t.AddRow("Output tokens", util.FormatNumber(s.TotalOutputTokens))
		t.AddRow("Cache create tokens", util.FormatNumber(s.TotalCacheCreationTokens))
		t.AddRow("Cache read tokens", util.FormatNumber(s.TotalCacheReadTokens))
		t.AddRow("Total tokens", util.FormatNumber(s.TotalTokens))
		t.AddRow("Projects", strconv.Itoa(s.ProjectCount))
		t.AddRow("Sessions", strconv.Itoa(s.SessionCount))
		t.AddRow("Models", modelList(s.ModelsUsed))
		if s.DateRangeStart != "" {
			t.AddRow("First activity", s.DateRangeStart)
			t.AddRow("Last activity", s.DateRangeEnd)
		}
		return t
	})
}

func (r *Renderer) Daily(list *model.DailyUsageList) error {
	return r.emit(list, func() *Table {
		t := periodTable("Date")
		for _, d := range list.Data {
			t.AddRow(append([]string{d.Date, modelList(d.ModelsUsed)}, tokenCells(d.TokenCounts, d.TotalCost)...)...)
			r.addBreakdown(t, d.ModelBreakdowns)
		}
		t.SetFooter(append([]string{"Total", ""}, tokenCells(list.Totals, list.TotalCost)...)...)
		return t
	})
}

func (r *Renderer) Monthly(list *model.MonthlyUsageList) error {
	return r.emit(list, func() *Table {
		t := periodTable("Month")
		for _, m := range list.Data {
			t.AddRow(append([]string{m.Month, modelList(m.ModelsUsed)}, tokenCells(m.TokenCounts, m.TotalCost)...)...)
			r.addBreakdown(t, m.ModelBreakdowns)
		}
		t.SetFooter(append([]string{"Total", ""}, tokenCells(list.Totals, list.TotalCost)...)...)
		return t
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (r *Renderer) Sessions(list *model.SessionUsageList) error {
	return r.emit(list, func() *Table {
		t := NewTable(
			Column{Header: "Session"},
			Column{Header: "Project"},
			Column{Header: "Last Activity"},
			Column{Header: "Models"},
			Column{Header: "Total Tokens", Align: AlignRight},
			Column{Header: "Cost (USD)", Align: AlignRight},
		)
		for _, s := range list.Data {
			t.AddRow(
				shortID(s.SessionID),
				s.ProjectPath,
				r.timestamp(s.LastActivity),
				modelList(s.ModelsUsed),
				util.FormatNumber(s.Total()),
				util.FormatCurrency(s.TotalCost),
			)
		}
		t.SetFooter(
			fmt.Sprintf("%d of %d", len(list.Data), list.Total), "", "", "",
			util.FormatNumber(list.Totals.Total()),
			util.FormatCurrency(list.TotalCost),
		)
		return t
	})
}

func blockStatus(b *model.SessionBlock) string {
	switch {
	case b.IsGap:
		return "gap"
	case b.IsActive:
		return "ACTIVE"
	default:
		return "done"
	}
}

func (r *Renderer) Blocks(list *model.BlockUsageList) error {
	return r.emit(list, func() *Table {
		t := NewTable(
			Column{Header: "Block Start"},
			Column{Header: "Status"},
			Column{Header: "Duration", Align: AlignRight},
			Column{Header: "Models"},
			Column{Header: "Tokens", Align: AlignRight},
			Column{Header: "Cost (USD)", Align: AlignRight},
			Column{Header: "Burn Rate", Align: AlignRight},
			Column{Header: "Projected", Align: AlignRight},
		)
		for i := range list.Data {
			b := &list.Data[i]
			duration := b.EndTime.Sub(b.StartTime)
			if b.ActualEndTime != nil {
				duration = b.ActualEndTime.Sub(b.StartTime)
			}

			burn, projected := "", ""
			if b.HasProjection() {
				burn = util.FormatBurnRate(*b.BurnRateTokensPerMinute)
				projected = fmt.Sprintf("%s / %s (%s left)",
					util.FormatCompact(*b.ProjectedTotalTokens),
					util.FormatCurrency(*b.ProjectedTotalCost),
					util.FormatDuration(time.Duration(*b.RemainingMinutes)*time.Minute))
			}

			if b.IsGap {
				t.AddRow(r.timestamp(b.StartTime), blockStatus(b), util.FormatDuration(duration), "", "", "", "", "")
				continue
			}
			t.AddRow(
				r.timestamp(b.StartTime),
				blockStatus(b),
				util.FormatDuration(duration),
				modelList(b.Models),
				util.FormatNumber(b.Total()),
				util.FormatCurrency(b.CostUSD),
				burn,
				projected,
			)
		}
		t.SetFooter("Total", "", "", "",
			util.FormatNumber(list.Totals.Total()),
			util.FormatCurrency(list.TotalCost), "", "")
		return t
	})
}

func (r *Renderer) Projects(list *model.SessionProjectList) error {
	return r.emit(list, func() *Table {
		t := NewTable(
			Column{Header: "Project"},
			Column{Header: "Folder"},
			Column{Header: "Sessions", Align: AlignRight},
			Column{Header: "Most Recent"},
		)
		for _, p := range list.Projects {
			t.AddRow(p.Name, p.Folder, strconv.Itoa(p.SessionCount), r.timestamp(p.MostRecent))
		}
		t.SetFooter("Total", "", strconv.Itoa(list.TotalSessions), "")
		return t
	})
}

func (r *Renderer) SessionList(list *model.SessionList) error {
	return r.emit(list, func() *Table {
		t := NewTable(
			Column{Header: "Session"},
			Column{Header: "Project"},
			Column{Header: "Modified"},
			Column{Header: "Size", Align: AlignRight},
			Column{Header: "Messages", Align: AlignRight},
			Column{Header: "Tools", Align: AlignRight},
			Column{Header: "Summary"},
		)
		for _, s := range list.Sessions {
			t.AddRow(
				shortID(s.ID),
				s.ProjectName,
				r.timestamp(s.ModifiedAt),
				util.FormatBytes(s.SizeBytes),
				strconv.Itoa(s.TotalMessages),
				strconv.Itoa(s.TotalToolCalls),
				s.Summary,
			)
		}
		t.SetFooter(fmt.Sprintf("%d of %d", len(list.Sessions), list.Total), "", "", "", "", "", "")
		return t
	})
}

func (r *Renderer) Stats(s *model.DashboardStats) error {
	return r.emit(s, func() *Table {
		t := NewTable(Column{Header: "Metric"}, Column{Header: "Value", Align: AlignRight})
		t.AddRow("Sessions", strconv.Itoa(s.TotalSessions))
		t.AddRow("Sessions today", strconv.Itoa(s.SessionsToday))
		t.AddRow("Sessions this week", strconv.Itoa(s.SessionsThisWeek))
		most := s.MostActiveProject
		if most == "" {
			most = "-"
		}
		t.AddRow("Most active project", most)
		t.AddRow("Messages", util.FormatNumber(s.TotalMessages))
		return t
	})
}

// SessionDetail prints a page of conversations. Only table and JSON are
// supported.
func (r *Renderer) SessionDetail(page *model.SessionDetailPage) error {
	if r.format != FormatTable {
		return r.emit(page, nil)
	}

	s := page.Session
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s (%s)\n", s.ID, s.ProjectName)
	fmt.Fprintf(&b, "Messages: %d  Tool calls: %d  Models: %s\n",
		s.TotalMessages, s.TotalToolCalls, modelList(s.ModelsUsed))
	fmt.Fprintf(&b, "Page %d of %d\n", page.CurrentPage, page.TotalPages)

	for i, conv := range s.Conversations {
		n := (page.CurrentPage-1)*page.PromptsPerPage + i + 1
		b.WriteString("\n")
		fmt.Fprintf(&b, "[%d] %s\n", n, conv.Timestamp)
		if conv.IsContinuation {
			b.WriteString("    (continued)\n")
		} else {
			fmt.Fprintf(&b, "    > %s\n", conv.UserText)
		}
		for _, msg := range conv.Messages {
			tools := 0
			for _, item := range msg.Content {
				if item.Type == model.ContentToolUse {
					tools++
				}
			}
			line := fmt.Sprintf("    %s %s", msg.Type, util.SimplifyModelName(msg.Model))
			if msg.Usage != nil {
				line += " " + util.FormatNumber(msg.Usage.Tokens().Total()) + " tokens"
			}
			if tools > 0 {
				line += fmt.Sprintf(", %d tool calls", tools)
			}
			b.WriteString(strings.TrimRight(line, " ") + "\n")
		}
	}

	_, err := fmt.Fprint(r.out, b.String())
	return err
}

package types

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// markdownTable renders rows under a heading, or nothing when rows is empty.
func markdownTable(heading string, rows [][]any, header ...any) string {
	if len(rows) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString(heading)
	buf.WriteByte('\n')
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header(header...)
	for _, row := range rows {
		_ = table.Append(row...)
	}
	_ = table.Render()
	return buf.String()
}

func missingFieldsTable(fields []FieldInfo) string {
	rows := make([][]any, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []any{f.DisplayName, f.JSONPointer, f.Description})
	}
	return markdownTable("# Missing required fields (in the order they are asked):", rows, "Field", "Pointer", "Description")
}

func contextFlagsTable(phase Phase) string {
	flags := phase.ContextFlags()
	rows := make([][]any, 0, len(flags))
	for _, flag := range flags {
		rows = append(rows, []any{flag})
	}
	return markdownTable("# Active context:", rows, "Flag")
}

// FormatToolRequest renders the request as the user message of an LLM prompt.
func FormatToolRequest[T any](req *ToolRequest[T]) (string, error) {
	stateJSON, err := sonic.Marshal(req.State)
	if err != nil {
		return "", err
	}
	sections := []string{
		fmt.Sprintf("# Message draft JSON:\n```json\n%s\n```", string(stateJSON)),
	}
	if req.StateSchema != "" {
		sections = append(sections, fmt.Sprintf("# Message schema JSON:\n```json\n%s\n```", req.StateSchema))
	}
	if req.Phase != "" {
		sections = append(sections, fmt.Sprintf("# Current Phase:\n%s", req.Phase))
	}
	if s := contextFlagsTable(req.Phase); s != "" {
		sections = append(sections, s)
	}
	if req.MessagePair.Question != "" || req.MessagePair.Answer != "" {
		sections = append(sections, "# Latest Dialogue:")
		if req.MessagePair.Question != "" {
			sections = append(sections, fmt.Sprintf("## Assistant Question:\n%s", req.MessagePair.Question))
		}
		if req.MessagePair.Answer != "" {
			sections = append(sections, fmt.Sprintf("## User Answer:\n%s", req.MessagePair.Answer))
		}
	}
	if s := missingFieldsTable(req.MissingFields); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n\n"), nil
}

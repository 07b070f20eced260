package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/motionbridge/internal/api/ws"
	"github.com/GriffinCanCode/motionbridge/internal/native"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/script"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func printField(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelStyle.Render(label)+valueStyle.Render(value))
}

func printExports(w io.Writer, exports map[string]registry.Handle) {
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		printField(w, "export", fmt.Sprintf("%s -> %d", name, exports[name]))
	}
}

func printResult(w io.Writer, r *script.Result) {
	for _, e := range r.Console {
		printLogEntry(w, e)
	}
	header := dimStyle.Render(fmt.Sprintf("%s in %s", r.RunID, r.Duration.Round(time.Microsecond)))
	if r.Error != "" {
		fmt.Fprintln(w, header, errorStyle.Render(r.Error))
		return
	}
	fmt.Fprintln(w, header)
	if r.Value != nil {
		_ = printJSON(w, r.Value)
	}
}

func printLogEntry(w io.Writer, e script.LogEntry) {
	style := valueStyle
	switch e.Level {
	case "warn":
		style = warnStyle
	case "error":
		style = errorStyle
	case "debug":
		style = dimStyle
	}
	fmt.Fprintln(w, dimStyle.Render(e.Time.Format("15:04:05.000")), style.Render(fmt.Sprintf("[%s] %s", e.Level, e.Message)))
}

func printNode(w io.Writer, n native.Node) {
	attrs := make([]string, 0, len(n.Attributes))
	for k, v := range n.Attributes {
		attrs = append(attrs, fmt.Sprintf("%s=%q", k, v))
	}
	slices.Sort(attrs)
	line := tagStyle.Render(n.Tag)
	if len(attrs) > 0 {
		line += " " + valueStyle.Render(strings.Join(attrs, " "))
	}
	if n.Text != "" {
		line += " " + dimStyle.Render(fmt.Sprintf("%q", n.Text))
	}
	fmt.Fprintln(w, line, dimStyle.Render(n.Path))
}

func printMessage(w io.Writer, msg ws.Message) {
	switch msg.Type {
	case "welcome":
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("connected as %s at seq %d", msg.ClientID, msg.Seq)))
	case "flush":
		fmt.Fprintln(w, tagStyle.Render(fmt.Sprintf("flush %d", msg.Seq)), dimStyle.Render(fmt.Sprintf("%d op(s)", len(msg.Ops))))
		for _, op := range msg.Ops {
			raw, err := sonic.MarshalString(op)
			if err != nil {
				continue
			}
			fmt.Fprintln(w, "  "+valueStyle.Render(raw))
		}
		if msg.HTML != "" {
			fmt.Fprintln(w, msg.HTML)
		}
	case "error":
		fmt.Fprintln(w, errorStyle.Render(msg.Message))
	default:
		fmt.Fprintln(w, dimStyle.Render(msg.Type))
	}
}

func printJSON(w io.Writer, v any) error {
	raw, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(raw))
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output печатает результаты команд.
//
// Данные идут в stdout (таблица или JSON), сообщения о ходе
// выполнения в stderr, чтобы `tracker --json ... | jq` получал чистый JSON.
type Output struct {
	jsonMode bool
	data     io.Writer
	notes    io.Writer
}

// NewOutput создаёт Output для терминала.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		data:     os.Stdout,
		notes:    os.Stderr,
	}
}

// Print выводит список: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(o.notes, "No results.")
		return
	}
	o.Table(headers, rows)
}

// Details выводит одну запись парами "поле: значение".
// Пустые значения печатаются как "-".
func (o *Output) Details(fields [][2]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}

	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		value := f[1]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s:\t%s\n", f[0], value)
	}
	tw.Flush()
}

// Table выводит строки таблицей с подчёркнутыми заголовками.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)

	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}

	writeRow(tw, headers)
	writeRow(tw, underline)
	for _, row := range rows {
		writeRow(tw, row)
	}

	tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

// JSON выводит значение JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(o.notes, "Error: encode output:", err)
	}
}

// Success пишет сообщение в stderr. В JSON-режиме молчит.
func (o *Output) Success(msg string) {
	if o.jsonMode {
		return
	}
	fmt.Fprintln(o.notes, msg)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// OutputFormat selects how Display renders resources.
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
)

// Formatter renders command results. Production uses TabFormatter, tests
// swap in a recorder via ContextKeyOutputRenderer.
type Formatter interface {
	Display(resources any, format OutputFormat) error
}

type FormatOptions struct {
	Output OutputFormat
}

func addFormatOptions(cmd *cobra.Command, options *FormatOptions) {
	cmd.Flags().VarP(newFormatValue(OutputFormatTable, &options.Output), "output", "o",
		`output format, one of "table" or "json"`)
}

type formatValue OutputFormat

var _ pflag.Value = (*formatValue)(nil)

func newFormatValue(defaultValue OutputFormat, target *OutputFormat) *formatValue {
	*target = defaultValue
	return (*formatValue)(target)
}

func (f *formatValue) String() string {
	return string(*f)
}

func (f *formatValue) Set(value string) error {
	switch OutputFormat(value) {
	case OutputFormatTable, OutputFormatJSON:
		*f = formatValue(value)
		return nil
	default:
		return fmt.Errorf("must be %q or %q", OutputFormatTable, OutputFormatJSON)
	}
}

func (f *formatValue) Type() string {
	return "format"
}

// TabFormatter renders tables through text/tabwriter and machine output
// through the JSON encoder. Table columns come from the display struct's
// json tags so both formats stay in sync.
type TabFormatter struct {
	out io.Writer
}

func NewTabFormatter(out io.Writer) *TabFormatter {
	return &TabFormatter{out: out}
}

func (f *TabFormatter) Display(resources any, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		return f.displayJSON(resources)
	case OutputFormatTable, "":
		return f.displayTable(resources)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (f *TabFormatter) displayJSON(resources any) error {
	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resources)
}

func (f *TabFormatter) displayTable(resources any) error {
	value := reflect.ValueOf(resources)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}

	rows := make([]reflect.Value, 0)
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			row := value.Index(i)
			for row.Kind() == reflect.Pointer {
				row = row.Elem()
			}
			rows = append(rows, row)
		}
	case reflect.Struct:
		rows = append(rows, value)
	default:
		_, err := fmt.Fprintln(f.out, resources)
		return err
	}

	elemType := value.Type()
	if elemType.Kind() == reflect.Slice || elemType.Kind() == reflect.Array {
		elemType = elemType.Elem()
	}
	for elemType.Kind() == reflect.Pointer {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		_, err := fmt.Fprintln(f.out, resources)
		return err
	}

	columns := tableColumns(elemType)
	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headerNames(columns), "\t"))

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = formatCell(row.Field(col.index))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	return w.Flush()
}

type tableColumn struct {
	name  string
	index int
}

func tableColumns(structType reflect.Type) []tableColumn {
	columns := make([]tableColumn, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() || !cellable(field.Type) {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		columns = append(columns, tableColumn{name: name, index: i})
	}
	return columns
}

// cellable reports whether a field renders into a single table cell. Nested
// structs and collections of structs appear in json output only.
func cellable(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return false
	case reflect.Slice, reflect.Array:
		elem := t.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		return elem.Kind() != reflect.Struct && elem.Kind() != reflect.Map
	}
	return true
}

func headerNames(columns []tableColumn) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = strings.ToUpper(col.name)
	}
	return names
}

func formatCell(value reflect.Value) string {
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return ""
		}
		value = value.Elem()
	}

	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return fmt.Sprintf("%v", value.Interface())
		}
		parts := make([]string, value.Len())
		for i := 0; i < value.Len(); i++ {
			parts[i] = formatCell(value.Index(i))
		}
		return strings.Join(parts, ",")
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%.2f", value.Float())
	default:
		return fmt.Sprintf("%v", value.Interface())
	}
}

var _ Formatter = (*TabFormatter)(nil)

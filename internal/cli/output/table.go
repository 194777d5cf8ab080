package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter formats data as an aligned text table.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format renders data. Tables render directly; slices, maps and structs
// are converted; scalars print on a single line.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}
	switch t := data.(type) {
	case *Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	var table *Table
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		table = sliceToTable(v, f.Wide)
	case reflect.Map:
		table = mapToTable(v)
	case reflect.Struct:
		if v.Type() == timeType {
			_, err := fmt.Fprintln(w, formatValue(v))
			return err
		}
		table = structToTable(v, f.Wide)
	default:
		_, err := fmt.Fprintln(w, formatValue(v))
		return err
	}
	return table.RenderWithOptions(w, f.NoHeaders)
}

var timeType = reflect.TypeOf(time.Time{})

// columns returns the visible fields of a struct type and their headers.
func columns(t reflect.Type, wide bool) (headers []string, fields []int) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" || (strings.Contains(tag, "wide") && !wide) {
			continue
		}
		headers = append(headers, strings.ToUpper(toSnakeCase(fieldName(field))))
		fields = append(fields, i)
	}
	return headers, fields
}

func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

func sliceToTable(v reflect.Value, wide bool) *Table {
	if v.Len() == 0 {
		return &Table{}
	}
	elemType := v.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}

	if elemType.Kind() == reflect.Struct && elemType != timeType {
		headers, fields := columns(elemType, wide)
		table := &Table{Headers: headers}
		for i := 0; i < v.Len(); i++ {
			elem := reflect.Indirect(v.Index(i))
			if !elem.IsValid() {
				continue
			}
			row := make([]string, len(fields))
			for j, idx := range fields {
				row[j] = formatValue(elem.Field(idx))
			}
			table.Rows = append(table.Rows, row)
		}
		return table
	}

	table := &Table{Headers: []string{"INDEX", "VALUE"}}
	for i := 0; i < v.Len(); i++ {
		table.AddRow(strconv.Itoa(i), formatValue(v.Index(i)))
	}
	return table
}

// mapToTable renders one row per entry, sorted by key. Integer keys sort
// numerically.
func mapToTable(v reflect.Value) *Table {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.CanInt() && b.CanInt() {
			return a.Int() < b.Int()
		}
		return formatValue(a) < formatValue(b)
	})
	table := &Table{Headers: []string{"KEY", "VALUE"}}
	for _, k := range keys {
		table.AddRow(formatValue(k), formatValue(v.MapIndex(k)))
	}
	return table
}

func structToTable(v reflect.Value, wide bool) *Table {
	headers, fields := columns(v.Type(), wide)
	table := &Table{Headers: []string{"FIELD", "VALUE"}}
	for i, idx := range fields {
		table.AddRow(strings.ToLower(headers[i]), formatValue(v.Field(idx)))
	}
	return table
}

// formatValue renders a single cell.
func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("2006-01-02 15:04:05")
	}

	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return "-"
		}
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// toSnakeCase converts CamelCase to Camel_Case; callers upper-case it.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table with headers.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table, optionally without headers.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}

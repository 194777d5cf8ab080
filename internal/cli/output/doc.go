// Package output renders aci-cli results as a table, JSON or YAML.
//
// Tables are built by reflection: slices become one row per element,
// maps and single structs become key/value rows, and scalars print on
// one line. Nested values are shown as compact JSON.
package output

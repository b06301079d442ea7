// Package snippet maps failing gates to template fixes.
//
// A Catalog is built once at startup from the gate registry: every declared
// gate resolves to a hand-authored snippet where one exists, falls back to a
// domain taxonomy category for unmapped gates, and degrades to a generic
// snippet titled from the gate ID otherwise. Snippets are immutable once
// registered and keyed by module_id:gate_id.
//
// Hand-authored snippets and the taxonomy are versioned YAML documents
// embedded in the binary and schema-validated at load; the catalog logic
// never hard-codes template text.
package snippet

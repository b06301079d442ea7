// Package gates defines the validation data model shared by the synthesis
// engine: gate statuses and severities, per-module validation results, and the
// Engine interface implemented by external rule evaluators.
//
// The package also provides a declarative gate registry. Modules and their
// gates are described in an embedded YAML document and resolved once at
// startup, so consumers never introspect rule modules at runtime.
//
// # Usage
//
// Loading the built-in registry and collecting failures:
//
//	reg, err := gates.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result := engine.Check(ctx, text, "financial_promotion", reg.ModuleIDs())
//	for _, f := range result.FailingGates() {
//	    fmt.Println(f.ModuleID, f.GateID, f.Result.Message)
//	}
package gates

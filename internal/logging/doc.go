// Package logging builds the process-wide zap logger.
//
// The logger redacts configured field names and value patterns before
// encoding. Synthesis requests carry client-identifying context (firm names,
// registration numbers, party names for NDAs) that must not appear in log
// output.
//
// # Usage
//
//	logger, err := logging.New(logging.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer logger.Sync()
package logging

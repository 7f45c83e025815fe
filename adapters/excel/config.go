package excel

import (
	"surveydeck/adapters/coercer"
)

// Config holds configuration for a spreadsheet data source.
type Config struct {
	// Sheet to read from workbooks. Empty means the first sheet.
	Sheet    string
	Coercion coercer.Config
}

// DefaultConfig returns the settings used for questionnaire exports.
func DefaultConfig() Config {
	return Config{
		Coercion: coercer.DefaultConfig(),
	}
}

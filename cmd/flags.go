package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// OutputFlags provides consistent output formatting flags across commands.
type OutputFlags struct {
	Format string
	Quiet  bool
}

// Bind registers the output flags on a flag set.
func (f *OutputFlags) Bind(flags *pflag.FlagSet) {
	flags.StringVarP(&f.Format, "format", "f", "table", "Output format (table|json|yaml)")
	flags.BoolVarP(&f.Quiet, "quiet", "q", false, "Suppress non-essential output")
}

// Render writes v to stdout in the selected structured format. The "table"
// format is handled by each command; Render rejects it.
func (f *OutputFlags) Render(v interface{}) error {
	return encodeTo(os.Stdout, f.Format, v)
}

func encodeTo(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(v)
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", format)
	}
}

// Structured reports whether the selected format is json or yaml.
func (f *OutputFlags) Structured() bool {
	return f.Format == "json" || f.Format == "yaml"
}

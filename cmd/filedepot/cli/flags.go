package cli

import (
	"time"

	"github.com/jnovack/flag"

	"github.com/filedepot/filedepot/internal/grouped_flags"
)

var Flags struct {
	ConfigPath     string
	Host           string
	Port           int
	FilesDir       string
	MetadataPath   string
	TemplatesPath  string
	NetworkTimeout time.Duration
	VerboseOutput  bool
	ExposeMetrics  bool
	MetricsAddr    string
	MetricsPath    string
	ShowVersion    bool
}

// flagsSet names the flags that were given explicitly on the command line.
// Only those override values from the settings file.
var flagsSet = map[string]bool{}

func ParseFlags() {
	fs := grouped_flags.NewFlagGroupSet(flag.ExitOnError)

	fs.AddGroup("Configuration options", func(f *flag.FlagSet) {
		f.StringVar(&Flags.ConfigPath, "config", "", "Path to the TOML settings file. When empty, built-in defaults are used")
		f.StringVar(&Flags.Host, "host", "0.0.0.0", "Host to bind the server to")
		f.IntVar(&Flags.Port, "port", 8080, "Port to bind the server to")
	})

	fs.AddGroup("Storage options", func(f *flag.FlagSet) {
		f.StringVar(&Flags.FilesDir, "dir", "./data/files", "Directory to store the files in")
		f.StringVar(&Flags.MetadataPath, "metadata", "./data/metadata.json", "Path of the metadata catalog file")
		f.StringVar(&Flags.TemplatesPath, "templates", "", "Path of the URL template table file. When empty, the built-in table is used")
	})

	fs.AddGroup("Timeout options", func(f *flag.FlagSet) {
		f.DurationVar(&Flags.NetworkTimeout, "network-timeout", 60*time.Second, "Network read and write timeout for client connections. A zero value means that network operations will not time out")
	})

	fs.AddGroup("Logging and monitoring options", func(f *flag.FlagSet) {
		f.BoolVar(&Flags.VerboseOutput, "verbose", true, "Enable verbose logging output")
		f.BoolVar(&Flags.ExposeMetrics, "expose-metrics", false, "Expose metrics in the Prometheus format on a side HTTP endpoint")
		f.StringVar(&Flags.MetricsAddr, "metrics-addr", "0.0.0.0:9100", "Address of the side HTTP endpoint for metrics")
		f.StringVar(&Flags.MetricsPath, "metrics-path", "/metrics", "Path of the metrics endpoint")
		f.BoolVar(&Flags.ShowVersion, "version", false, "Print version information")
	})

	fs.Parse()
	fs.Visit(func(fl *flag.Flag) {
		flagsSet[fl.Name] = true
	})
}

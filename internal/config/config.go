package config

import (
	"github.com/spf13/viper"
)

type (
	Config struct {
		Paths
		Context
		Match
		Render
	}

	Paths struct {
		Clippings string // path to the My Clippings.txt export
		Library   string // directory of book files
		Output    string // rendered document destination, "-" for stdout
		Database  string // sqlite file for -save runs
	}

	Context struct {
		WindowSize int    // units of context on each side of a match
		Unit       string // "line" or "sentence"
	}

	Match struct {
		FuzzyThreshold float64 // minimum similarity for a fuzzy match
	}

	Render struct {
		DedupEnabled bool
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("clippings_path", DefaultClippingsPath())
	v.SetDefault("library_dir", "")
	v.SetDefault("output_path", DefaultOutputPath)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("context_window", DefaultWindowSize)
	v.SetDefault("context_unit", "line")

	v.SetDefault("fuzzy_threshold", DefaultFuzzyThreshold)
	v.SetDefault("dedup_enabled", true)

	return &Config{
		Paths: Paths{
			Clippings: v.GetString("CLIPPINGS_PATH"),
			Library:   v.GetString("LIBRARY_DIR"),
			Output:    v.GetString("OUTPUT_PATH"),
			Database:  v.GetString("DATABASE_PATH"),
		},
		Context: Context{
			WindowSize: v.GetInt("CONTEXT_WINDOW"),
			Unit:       v.GetString("CONTEXT_UNIT"),
		},
		Match: Match{
			FuzzyThreshold: v.GetFloat64("FUZZY_THRESHOLD"),
		},
		Render: Render{
			DedupEnabled: v.GetBool("DEDUP_ENABLED"),
		},
	}
}

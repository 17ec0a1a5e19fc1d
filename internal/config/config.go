package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "DOC_HARVESTER_CONFIG"
	outDirEnv      = "DOC_HARVESTER_OUT_DIR"
	providerEnv    = "DOC_HARVESTER_PROVIDER"
	historyPathEnv = "DOC_HARVESTER_HISTORY_PATH"
	userAgentEnv   = "DOC_HARVESTER_USER_AGENT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Provider Provider `yaml:"provider"`
	Download Download `yaml:"download"`
	Fetch    Fetch    `yaml:"fetch"`
	Input    Input    `yaml:"input"`
	Output   Output   `yaml:"output"`
	History  History  `yaml:"history"`
	Keywords Keywords `yaml:"keywords"`
	Scan     Scan     `yaml:"scan"`
	Logging  Logging  `yaml:"logging"`
}

// Logging controls console log verbosity.
type Logging struct {
	Level string `yaml:"level"`
}

// Provider selects which document source serves discovery requests.
type Provider struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseUrl"`
}

// Download controls what is kept and where it lands on disk.
type Download struct {
	OutDir     string `yaml:"outDir"`
	Languages  string `yaml:"languages"`
	LatestOnly bool   `yaml:"latestOnly"`
	DryRun     bool   `yaml:"dryRun"`
	// VersionStart is the first -vN suffix used when stored content
	// differs from an existing file.
	VersionStart  int `yaml:"versionStart"`
	SlugMaxLength int `yaml:"slugMaxLength"`
}

// Fetch tunes the HTTP client shared by discovery and downloads.
type Fetch struct {
	MaxAttempts    int    `yaml:"maxAttempts"`
	BaseDelayMS    int    `yaml:"baseDelayMs"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	UserAgent      string `yaml:"userAgent"`
	AllowInsecure  bool   `yaml:"allowInsecure"`
	CurlBinary     string `yaml:"curlBinary"`
}

// BaseDelay converts the configured backoff base to a duration.
func (f Fetch) BaseDelay() time.Duration {
	return time.Duration(f.BaseDelayMS) * time.Millisecond
}

// Timeout converts the configured per-request timeout to a duration.
func (f Fetch) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Input names the required columns of the project table.
type Input struct {
	IDColumn      string `yaml:"idColumn"`
	CountryColumn string `yaml:"countryColumn"`
	TitleColumn   string `yaml:"titleColumn"`
}

// Output names the CSV artifacts a download run produces.
type Output struct {
	ManifestPath string `yaml:"manifestPath"`
	SummaryPath  string `yaml:"summaryPath"`
}

// History wires the optional embedded download-history database.
type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Keywords configures the scan term set: an inline list, an optional file
// of one term per line, or both.
type Keywords struct {
	List []string `yaml:"list"`
	File string   `yaml:"file"`
}

// Scan configures the CSV keyword-scan command. Empty Columns means every
// column is scanned.
type Scan struct {
	Columns []string `yaml:"columns"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(outDirEnv); v != "" {
		c.Download.OutDir = v
	}

	if v := os.Getenv(providerEnv); v != "" {
		c.Provider.Name = v
	}

	if v := os.Getenv(historyPathEnv); v != "" {
		c.History.Enabled = true
		c.History.Path = v
	}

	if v := os.Getenv(userAgentEnv); v != "" {
		c.Fetch.UserAgent = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Provider.Name != "" {
		base.Provider.Name = override.Provider.Name
	}
	if override.Provider.BaseURL != "" {
		base.Provider.BaseURL = override.Provider.BaseURL
	}

	if override.Download.OutDir != "" {
		base.Download.OutDir = override.Download.OutDir
	}
	if override.Download.Languages != "" {
		base.Download.Languages = override.Download.Languages
	}
	if override.Download.LatestOnly {
		base.Download.LatestOnly = true
	}
	if override.Download.DryRun {
		base.Download.DryRun = true
	}
	if override.Download.VersionStart > 0 {
		base.Download.VersionStart = override.Download.VersionStart
	}
	if override.Download.SlugMaxLength > 0 {
		base.Download.SlugMaxLength = override.Download.SlugMaxLength
	}

	if override.Fetch.MaxAttempts > 0 {
		base.Fetch.MaxAttempts = override.Fetch.MaxAttempts
	}
	if override.Fetch.BaseDelayMS > 0 {
		base.Fetch.BaseDelayMS = override.Fetch.BaseDelayMS
	}
	if override.Fetch.TimeoutSeconds > 0 {
		base.Fetch.TimeoutSeconds = override.Fetch.TimeoutSeconds
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.AllowInsecure {
		base.Fetch.AllowInsecure = true
	}
	if override.Fetch.CurlBinary != "" {
		base.Fetch.CurlBinary = override.Fetch.CurlBinary
	}

	if override.Input.IDColumn != "" {
		base.Input.IDColumn = override.Input.IDColumn
	}
	if override.Input.CountryColumn != "" {
		base.Input.CountryColumn = override.Input.CountryColumn
	}
	if override.Input.TitleColumn != "" {
		base.Input.TitleColumn = override.Input.TitleColumn
	}

	if override.Output.ManifestPath != "" {
		base.Output.ManifestPath = override.Output.ManifestPath
	}
	if override.Output.SummaryPath != "" {
		base.Output.SummaryPath = override.Output.SummaryPath
	}

	if override.History.Enabled {
		base.History.Enabled = true
	}
	if override.History.Path != "" {
		base.History.Path = override.History.Path
	}

	if len(override.Keywords.List) > 0 {
		base.Keywords.List = override.Keywords.List
	}
	if override.Keywords.File != "" {
		base.Keywords.File = override.Keywords.File
	}

	if len(override.Scan.Columns) > 0 {
		base.Scan.Columns = override.Scan.Columns
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Provider: Provider{Name: "worldbank"},
		Download: Download{
			OutDir:        "out",
			Languages:     "en",
			LatestOnly:    true,
			VersionStart:  2,
			SlugMaxLength: 120,
		},
		Fetch: Fetch{
			MaxAttempts:    5,
			BaseDelayMS:    1000,
			TimeoutSeconds: 30,
			UserAgent:      "DocHarvester/1.0",
			CurlBinary:     "curl",
		},
		Input: Input{
			IDColumn:      "Project Id",
			CountryColumn: "Country",
			TitleColumn:   "Project Name",
		},
		Output: Output{
			ManifestPath: "out/manifest.csv",
			SummaryPath:  "out/download_summary.csv",
		},
		History:  History{Path: "out/history.db"},
		Keywords: Keywords{List: DefaultKeywords()},
		Logging:  Logging{Level: "info"},
	}
}

// DefaultKeywords is the built-in livestock term set, covering English,
// Spanish, French, and Portuguese vocabulary found in project metadata.
func DefaultKeywords() []string {
	return []string{
		"livestock", "cattle", "dairy", "cow", "cows", "bovine", "buffalo",
		"goat", "goats", "sheep", "lamb", "ovine", "caprine",
		"pig", "pigs", "swine", "hog", "piggery",
		"poultry", "chicken", "chickens", "broiler", "hen", "egg production",
		"milk", "meat", "beef", "pork",
		"pastoral", "agro pastoral", "pasture", "grazing", "rangeland",
		"fodder", "forage", "herd", "herder",
		"veterinary", "animal health", "animal husbandry",
		"ganaderia", "ganadero", "pecuario", "bovino", "ovino", "caprino",
		"porcino", "avicola", "leche", "carne",
		"elevage", "betail", "pastoralisme",
		"pecuaria", "gado", "leite",
	}
}

// Package constants provides shared constants for the EzValuation application.
package constants

// Scoring constants
const (
	// BooleanTrueLabel is the range label matched by a "yes" answer
	BooleanTrueLabel = "Sim"

	// BooleanFalseLabel is the range label matched by a "no" answer
	BooleanFalseLabel = "Não"

	// ExcellentThreshold is the lowest final score classified as Excellent
	ExcellentThreshold = 8.0

	// GoodThreshold is the lowest final score classified as Good
	GoodThreshold = 6.0

	// MediumThreshold is the lowest final score classified as Medium
	MediumThreshold = 4.0
)

// Classification labels
const (
	ClassificationExcellent = "Excellent"
	ClassificationGood      = "Good"
	ClassificationMedium    = "Medium"
	ClassificationWeak      = "Weak"
)

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// BasisPointsDivisor converts basis points to a decimal fraction
	BasisPointsDivisor = 10000.0

	// DefaultProjectionYears is the projection horizon of the IPCA+ model
	DefaultProjectionYears = 10

	// DefaultTerminalGrowth is the perpetual growth used by FCFE when none is given
	DefaultTerminalGrowth = 0.03

	// DefaultIPCA is the fallback IPCA expectation (decimal) when no index is stored
	DefaultIPCA = 0.045

	// DefaultIPCAPremium is the fallback real premium (decimal) when no NTN-B index is stored
	DefaultIPCAPremium = 0.06
)

// Vacancy thresholds, as decimal fractions of revenue
const (
	VacancyLowThreshold     = 0.05
	VacancyMediumThreshold  = 0.15
	VacancyHealthyThreshold = 0.10
)

// Market index names
const (
	IndexIPCA  = "IPCA"
	IndexNTNB  = "NTN-B"
	IndexCDI   = "CDI"
	IndexSELIC = "SELIC"
)

// Keys of the decimal rate snapshot a methodology carries
const (
	MethodologyIndexIPCA     = "ipca"
	MethodologyIndexNTNBReal = "ntnbReal"
)

// Market index units
const (
	UnitPercent     = "%"
	UnitDecimal     = "decimal"
	UnitBasisPoints = "bps"
)

// Export format constants
const (
	// OutputFormatPretty is the human-readable report format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV report format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix is the prefix of environment variables overriding config keys
	EnvPrefix = "EZV"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024

	// DefaultDatabasePath is the default SQLite database file
	DefaultDatabasePath = "data/ezvaluation.db"

	// DefaultQuoteEndpoint is the default fund quote API base URL
	DefaultQuoteEndpoint = "https://query1.finance.yahoo.com"

	// DefaultQuoteTimeoutSeconds bounds a single fund quote lookup
	DefaultQuoteTimeoutSeconds = 10

	// TickerSuffix is appended to B3 tickers for the quote provider
	TickerSuffix = ".SA"
)

// Identity headers set by the upstream auth proxy
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	RoleAdmin      = "admin"
)

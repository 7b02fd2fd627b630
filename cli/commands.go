package cli

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Store     string `help:"Record store: a JSON file path, memory:, sqlite://PATH or postgres://DSN." env:"SALESLEDGER_STORE" default:"sales.json"`
	Futures   string `help:"Futures market data: a base URL or a JSON file of daily rows." env:"SALESLEDGER_FUTURES"`
	Crop      string `help:"Crop quoted on the futures board." env:"SALESLEDGER_CROP" default:"CORN"`
	LogLevel  string `help:"Log level (trace, debug, info, warn, error)." env:"SALESLEDGER_LOG_LEVEL" default:"warn"`
	LogFormat string `help:"Log format." enum:"text,json" default:"text"`
	Telemetry bool   `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	List    ListCmd    `cmd:"" help:"List every sale with its status and valuation."`
	Show    ShowCmd    `cmd:"" help:"Show the records and valuation of one sale."`
	Add     AddCmd     `cmd:"" help:"Record a new Cash, HTA or Basis sale."`
	Set     SetCmd     `cmd:"" help:"Set part of a sale or rolled record."`
	Roll    RollCmd    `cmd:"" help:"Roll part of a sale or rolled record to a later futures month."`
	Edit    EditCmd    `cmd:"" help:"Edit a record."`
	Delete  DeleteCmd  `cmd:"" help:"Delete a record, or a sale with all its records."`
	Futures FuturesCmd `cmd:"" help:"Show the futures board."`
	Check   CheckCmd   `cmd:"" help:"Check the stored records for integrity problems."`
	Web     WebCmd     `cmd:"" help:"Start a web server."`
}

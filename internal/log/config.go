package log

// LoggerConfig configures the process logger.
type LoggerConfig struct {
	Level   string          `mapstructure:"level"`   // trace / debug / info / warn / error
	Format  string          `mapstructure:"format"`  // text / json
	Pattern string          `mapstructure:"pattern"` // text format only
	Time    string          `mapstructure:"time"`    // time layout for %time
	File    FileAppenderOpt `mapstructure:"file"`    // enabled when Filename is set
}

const (
	DefaultPattern = "%time [%level] %field %msg"
	DefaultTime    = "2006-01-02 15:04:05.000"
)

package session

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message. Hint carries an actionable suggestion.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

const (
	msgConnected       = "connection established"
	msgNotConnected    = "configure and connect to a database to get started"
	msgEmptyQuestion   = "type a question before generating a query"
	msgEmptyResult     = "query ran but returned no rows"
	msgTranslateFailed = "could not generate a SQL query"
)

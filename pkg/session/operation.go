package session

// Kind identifies a user-triggered printer action
type Kind string

const (
	KindPrintText Kind = "print_text"
	KindPrintTest Kind = "print_test"
	KindFetchInfo Kind = "fetch_info"
)

// Operation is the action a session performs between connect and disconnect.
type Operation struct {
	Kind Kind
	Text string
}

// PrintText prints the given text
func PrintText(text string) Operation {
	return Operation{Kind: KindPrintText, Text: text}
}

// PrintTest prints the driver's test page
func PrintTest() Operation {
	return Operation{Kind: KindPrintTest}
}

// FetchInfo reads the device specs and presents them
func FetchInfo() Operation {
	return Operation{Kind: KindFetchInfo}
}

// Phase names used in metrics and structured logs
const (
	PhaseConnect    = "connect"
	PhaseOperate    = "operate"
	PhaseDisconnect = "disconnect"
)

// Activity log messages
const (
	MsgNoCustomMessage = "No custom message found to print."
	MsgConnected       = "Connected to printer."
	MsgPrintSent       = "Print job sent."
	MsgTestPrintSent   = "Test print sent."
	MsgDisconnected    = "Disconnected from printer."

	msgConnectFailed    = "Failed to connect: %s"
	msgPrintFailed      = "Failed to print text: %s"
	msgTestPrintFailed  = "Failed to send test print: %s"
	msgInfoFailed       = "Failed to get printer info.\n> %s"
	msgDisconnectFailed = "Failed to disconnect: %s"
)

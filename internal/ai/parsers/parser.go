package parsers

// Parser is the base interface for all parsers
type Parser interface {
	// GetType returns the type of parser
	GetType() string
}

// StringParser is the interface for parsers that process complete strings
type StringParser interface {
	Parser
	// Parse processes a complete string and returns structured data
	Parse(input string) (interface{}, error)
}

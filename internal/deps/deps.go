package deps

// Status is the resolved state of one external binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

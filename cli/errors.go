package cli

import (
	"errors"

	"github.com/MakeNowJust/heredoc"
)

var (
	ErrConfigNotFound = errors.New(heredoc.Doc(`
	Config file not found. Loading from defaults...

	Run "sieve config init" to initialize a new configuration file
	Run "sieve help environment" for more information.

	Alternatively, make a "sieve.yaml" file in the current directory from the example given
`))

	errNoRecordsFile = errors.New("records file is required, use --file")
)

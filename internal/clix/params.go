package clix

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// ErrConflictingJobFlags is returned when both --job and --job-file are given.
var ErrConflictingJobFlags = errors.New("use either --job or --job-file, not both")

// JobInput returns the job description source from --job (text, URL or
// path) or --job-file (path only). An empty string means neither was set.
func JobInput(flags *pflag.FlagSet) (string, error) {
	job, _ := flags.GetString("job")
	jobFile, _ := flags.GetString("job-file")
	job = strings.TrimSpace(job)
	jobFile = strings.TrimSpace(jobFile)

	switch {
	case job != "" && jobFile != "":
		return "", ErrConflictingJobFlags
	case jobFile != "":
		fi, err := os.Stat(jobFile)
		if err != nil {
			return "", fmt.Errorf("job description file '%s': %w", jobFile, err)
		}
		if fi.IsDir() {
			return "", fmt.Errorf("job description file '%s' is a directory", jobFile)
		}
		return jobFile, nil
	default:
		return job, nil
	}
}

// OutputParams controls what analyze does with a result. The report format
// is not here: --format is bound to export.format.
type OutputParams struct {
	Save bool
	Copy bool
	JSON bool
}

func ParseOutput(flags *pflag.FlagSet) OutputParams {
	save, _ := flags.GetBool("save")
	copyResult, _ := flags.GetBool("copy")
	asJSON, _ := flags.GetBool("json")
	return OutputParams{Save: save, Copy: copyResult, JSON: asJSON}
}

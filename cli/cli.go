package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/pkg/api"
	"github.com/absmach/masklab/runstore"
	"github.com/fatih/color"
	prettyjson "github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

// errUsage marks a command invoked with the wrong arguments; the usage line
// has already been printed.
var errUsage = errors.New("invalid usage")

var (
	svc    lab.Service
	pretty bool
)

func SetService(s lab.Service) {
	svc = s
}

// AddPersistentFlags registers the output flags shared by every command.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Colourise JSON output")
}

type failure struct {
	Success bool                   `json:"success"`
	Error   api.ErrorBody          `json:"error"`
	Models  []runstore.ModelResult `json:"models,omitempty"`
}

// logJSONCmd writes v to stdout as a single JSON document.
func logJSONCmd(cmd cobra.Command, v any) {
	var (
		data []byte
		err  error
	)
	switch {
	case pretty:
		data, err = prettyjson.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
}

// logErrorCmd prints a coloured diagnostic to stderr.
func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	boldRed.Fprintf(cmd.ErrOrStderr(), "\nerror: ")
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", color.RedString(err.Error()))
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.ErrOrStderr(), color.YellowString("\nusage: %s\n\n"), u)
}

// fail reports err on both streams and hands it back so the process exits
// non-zero. Partial model results are kept in the JSON document.
func fail(cmd *cobra.Command, err error, models []runstore.ModelResult) error {
	logErrorCmd(*cmd, err)
	logJSONCmd(*cmd, failure{Error: api.NewErrorBody(err), Models: models})

	return err
}

func usage(cmd *cobra.Command) error {
	logUsageCmd(*cmd, cmd.Use)

	return errUsage
}

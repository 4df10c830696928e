package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	sigyaml "sigs.k8s.io/yaml"

	"github.com/canonical/gomaas/pkg/bones"
)

// newAPICmd creates and returns a new api command
func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api <handler> <action> [param:name=value ...] [name=value ...]",
		Short: "Call an API action directly",
		Long: `Call one action of one handler, passing URI parameters as
param:name=value and payload data as name=value. Repeat a data argument to
send a multi-valued parameter.

Example:
  maas api Machines read
  maas api Machine read param:system_id=x7k3fp
  maas api Machines deployment_status nodes=a nodes=b
  maas api Machine update param:system_id=x7k3fp hostname=web01`,
		Args: cobra.MinimumNArgs(2),
		RunE: runAPI,
	}
	cmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
	return cmd
}

// runAPI handles the api command execution
func runAPI(cmd *cobra.Command, args []string) error {
	_, session, err := currentSession()
	if err != nil {
		return err
	}
	handler, err := session.Handler(args[0])
	if err != nil {
		return err
	}
	action, err := handler.Action(args[1])
	if err != nil {
		return err
	}

	params := map[string]string{}
	var data []bones.Param
	for _, arg := range args[2:] {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("argument %q is not name=value", arg)
		}
		if uriParam, isParam := strings.CutPrefix(name, "param:"); isParam {
			params[uriParam] = value
		} else {
			data = append(data, bones.P(name, value))
		}
	}

	result, err := action.Call(cmd.Context(), params, data...)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "json":
		if gjson.ValidBytes(result.Content) {
			printJSON(result.Data)
		} else {
			cmd.Println(string(result.Content))
		}
	case "yaml":
		rendered, err := sigyaml.JSONToYAML(result.Content)
		if err != nil {
			return fmt.Errorf("cannot render response as YAML: %w", err)
		}
		cmd.Print(string(rendered))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

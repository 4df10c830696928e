package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newDescribeCmd creates and returns a new describe command
func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [handler]",
		Short: "List the API handlers and actions the server offers",
		Long: `List the handlers bound from the server's API description, or the
actions of one handler.

Example:
  maas describe
  maas describe Machines`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDescribe,
	}
}

// runDescribe handles the describe command execution
func runDescribe(cmd *cobra.Command, args []string) error {
	_, session, err := currentSession()
	if err != nil {
		return err
	}

	nameLabel := color.New(color.Bold)

	if len(args) == 0 {
		if jsonOutput {
			printJSON(session.Handlers())
			return nil
		}
		for _, name := range session.Handlers() {
			handler, err := session.Handler(name)
			if err != nil {
				return err
			}
			nameLabel.Print(name)
			fmt.Printf("  %s\n", handler.Path())
		}
		return nil
	}

	handler, err := session.Handler(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		type action struct {
			Name   string `json:"name"`
			Method string `json:"method"`
			Op     string `json:"op,omitempty"`
		}
		listed := make([]action, 0, len(handler.Actions()))
		for _, name := range handler.Actions() {
			act, err := handler.Action(name)
			if err != nil {
				return err
			}
			listed = append(listed, action{
				Name:   name,
				Method: act.Method(),
				Op:     act.Op(),
			})
		}
		printJSON(map[string]any{
			"handler": handler.Name(),
			"uri":     handler.URI(),
			"params":  handler.Params(),
			"actions": listed,
		})
		return nil
	}

	nameLabel.Println(handler.Name())
	fmt.Printf("  uri: %s\n", handler.URI())
	if params := handler.Params(); len(params) > 0 {
		fmt.Printf("  params: %v\n", params)
	}
	for _, name := range handler.Actions() {
		act, err := handler.Action(name)
		if err != nil {
			return err
		}
		if act.IsRestful() {
			fmt.Printf("  %-24s %s\n", name, act.Method())
		} else {
			fmt.Printf("  %-24s %s op=%s\n", name, act.Method(), act.Op())
		}
	}
	return nil
}

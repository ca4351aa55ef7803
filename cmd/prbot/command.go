package main

import (
	"fmt"
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/spf13/cobra"
)

var commandUser string

var integrateCmd = &cobra.Command{
	Use:   "integrate <repository> <pull-request> [<hash>]",
	Short: "Run /integrate on a pull request",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv := entities.CommandInvocation{
			Kind:          entities.CommandIntegrate,
			User:          entities.User{Login: commandUser},
			Repository:    args[0],
			PullRequestID: args[1],
		}
		if len(args) == 3 {
			inv.Args = args[2]
		}
		return dispatch(cmd, inv)
	},
}

var backportCmd = &cobra.Command{
	Use:   "backport <repository> <hash> <target-repository> [<branch>]",
	Short: "Run /backport on a commit",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, entities.CommandInvocation{
			Kind:       entities.CommandBackport,
			User:       entities.User{Login: commandUser},
			Repository: args[0],
			Commit:     entities.Hash(strings.ToLower(args[1])),
			Args:       strings.Join(args[2:], " "),
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{integrateCmd, backportCmd} {
		c.Flags().StringVar(&commandUser, "user", "", "Forge login the command is issued as")
		_ = c.MarkFlagRequired("user")
	}
}

// dispatch runs one command and prints the reply that was posted.
func dispatch(cmd *cobra.Command, inv entities.CommandInvocation) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.uc.Dispatch(cmd.Context(), inv)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
	if res.Kind == entities.ResultInfraFault {
		return fmt.Errorf("%s failed: %w", inv.Kind, res.Err)
	}
	return nil
}

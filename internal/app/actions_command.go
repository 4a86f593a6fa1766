package app

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/execution"
	"github.com/spf13/cobra"
)

func (s *runtimeState) newActionsCommand() *cobra.Command {
	root := &cobra.Command{Use: "actions", Short: "Recorded wrap, unwrap and swap actions"}

	var filter execution.ListFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent actions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch execution.ActionStatus(strings.ToLower(strings.TrimSpace(filter.Status))) {
			case "", execution.ActionStatusPlanned, execution.ActionStatusRunning, execution.ActionStatusCompleted,
				execution.ActionStatusFailed, execution.ActionStatusUnknown:
			default:
				return clierr.New(clierr.CodeUsage, "status must be planned, running, completed, failed or unknown")
			}
			filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
			filter.Intent = strings.ToLower(strings.TrimSpace(filter.Intent))
			items, err := s.actionStore.List(filter)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list actions", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), items, nil, cacheMetaBypass(), nil, false)
		},
	}
	list.Flags().StringVar(&filter.Status, "status", "", "Filter by status")
	list.Flags().StringVar(&filter.Intent, "intent", "", "Filter by intent (wrap|unwrap|swap)")
	list.Flags().StringVar(&filter.Owner, "owner", "", "Filter by owner address")
	list.Flags().IntVar(&filter.Limit, "limit", 20, "Maximum actions to return")

	var actionIDFlag, signature string
	show := &cobra.Command{
		Use:   "show [ACTION_ID]",
		Short: "Show one action by id or transaction signature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) > 0 {
				arg = args[0]
			}
			var (
				action execution.Action
				err    error
			)
			if strings.TrimSpace(signature) != "" {
				if arg != "" || actionIDFlag != "" {
					return clierr.New(clierr.CodeUsage, "use either an action id or --signature, not both")
				}
				action, err = s.actionStore.GetBySignature(strings.TrimSpace(signature))
			} else {
				var actionID string
				if actionID, err = resolveActionID(arg, actionIDFlag); err != nil {
					return err
				}
				action, err = s.actionStore.Get(actionID)
			}
			if err != nil {
				return clierr.Ensure(clierr.CodeInternal, "load action", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), action, nil, cacheMetaBypass(), nil, false)
		},
	}
	show.Flags().StringVar(&actionIDFlag, "action-id", "", "Action identifier")
	show.Flags().StringVar(&signature, "signature", "", "Transaction signature recorded on the action")

	root.AddCommand(list)
	root.AddCommand(show)
	return root
}

// resolveActionID accepts the id positionally or via --action-id, not two
// different ones.
func resolveActionID(arg, flag string) (string, error) {
	arg = strings.TrimSpace(arg)
	flag = strings.TrimSpace(flag)
	switch {
	case arg == "" && flag == "":
		return "", clierr.New(clierr.CodeUsage, "action id is required")
	case arg != "" && flag != "" && arg != flag:
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("conflicting action ids %q and %q", arg, flag))
	case arg != "":
		return arg, nil
	default:
		return flag, nil
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duetapp/duet"
)

func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces and invitations",
	}
	cmd.AddCommand(
		newWorkspaceListCmd(),
		newWorkspaceCreateCmd(),
		newWorkspaceUseCmd(),
		newWorkspaceInviteCmd(),
		newWorkspaceRespondCmd(),
	)
	return cmd
}

func newWorkspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces (current marked with *) and pending invitations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				st := a.Workspaces.Get()
				out := cmd.OutOrStdout()
				for _, ws := range st.Workspaces {
					mark := " "
					if ws.ID == st.CurrentWorkspaceID {
						mark = "*"
					}
					fmt.Fprintf(out, "%s %s\t%s\t%s\t%d member(s)\n", mark, ws.ID, ws.Type, ws.Name, len(ws.Members))
				}
				for _, inv := range st.Pending() {
					fmt.Fprintf(out, "invitation %s\t%s -> %s\t%s\n", inv.ID, inv.InviterEmail, inv.InviteeEmail, inv.WorkspaceName)
				}
				return nil
			})
		},
	}
}

func newWorkspaceCreateCmd() *cobra.Command {
	var name, kind, startDate string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate("start-date", startDate)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				ws, ok := a.Workspaces.Add(duet.Workspace{
					Name:      name,
					Type:      duet.WorkspaceKind(kind),
					StartDate: start,
				})
				if !ok {
					return fmt.Errorf("workspace %s already exists", ws.ID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workspace created: %s - %s\n", ws.ID, ws.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workspace name (required)")
	cmd.Flags().StringVar(&kind, "type", string(duet.WorkspaceCouple), "couple or group")
	cmd.Flags().StringVar(&startDate, "start-date", "", "Anniversary date YYYY-MM-DD (optional)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newWorkspaceUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <workspace-id>",
		Short: "Select the current workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if !a.Workspaces.SetCurrent(args[0]) {
					return fmt.Errorf("no workspace %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current workspace: %s\n", args[0])
				return nil
			})
		},
	}
}

func newWorkspaceInviteCmd() *cobra.Command {
	var workspaceID, from, to string

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite someone to a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				wsID, err := currentWorkspace(a, workspaceID)
				if err != nil {
					return err
				}
				inviter := from
				if inviter == "" {
					if u := a.Profile.Get().User; u != nil {
						inviter = u.Email
					}
				}
				inv, err := a.Workspaces.Invite(wsID, inviter, to)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invitation %s sent to %s\n", inv.ID, inv.InviteeEmail)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Workspace ID (default current)")
	cmd.Flags().StringVar(&from, "from", "", "Inviter email (default signed-in user)")
	cmd.Flags().StringVar(&to, "to", "", "Invitee email (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newWorkspaceRespondCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "respond <invitation-id> accept|decline",
		Short: "Accept or decline a pending invitation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status duet.InviteStatus
			switch args[1] {
			case "accept":
				status = duet.InviteAccepted
			case "decline":
				status = duet.InviteDeclined
			default:
				return fmt.Errorf("response must be accept or decline, got %q", args[1])
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if !a.Workspaces.Respond(args[0], status) {
					return fmt.Errorf("invitation %s is not pending", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invitation %s %s\n", args[0], status)
				return nil
			})
		},
	}
}

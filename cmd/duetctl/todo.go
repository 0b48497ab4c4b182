package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/duetapp/duet"
	"github.com/duetapp/duet/internal/todo"
)

func newTodoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage the shared to-do list",
	}
	cmd.AddCommand(newTodoAddCmd(), newTodoListCmd(), newTodoDoneCmd(), newTodoRmCmd())
	return cmd
}

func newTodoAddCmd() *cobra.Command {
	var workspaceID, title, description, assignee, due string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a to-do",
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseDate("due", due)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				wsID, err := currentWorkspace(a, workspaceID)
				if err != nil {
					return err
				}
				td, err := a.Todos.Add(duet.TodoInput{
					WorkspaceID: wsID,
					Title:       title,
					Description: description,
					AssigneeID:  assignee,
					DueDate:     dueDate,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Todo added: %s - %s\n", td.ID, td.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Workspace ID (default current)")
	cmd.Flags().StringVar(&title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description (optional)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Member ID (optional)")
	cmd.Flags().StringVar(&due, "due", "", "Due date YYYY-MM-DD (optional)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newTodoListCmd() *cobra.Command {
	var workspaceID string
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List to-dos of a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				wsID, err := currentWorkspace(a, workspaceID)
				if err != nil {
					return err
				}
				items := todo.ForWorkspace(a.Todos.Get(), wsID)
				if pendingOnly {
					items = todo.Pending(a.Todos.Get(), wsID)
				}
				for _, td := range items {
					printTodo(cmd.OutOrStdout(), td)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Workspace ID (default current)")
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only open items")

	return cmd
}

func printTodo(w io.Writer, td duet.Todo) {
	box := "[ ]"
	if td.IsCompleted {
		box = "[x]"
	}
	due := ""
	if !td.DueDate.IsZero() {
		due = " (due " + td.DueDate.Format(dateLayout) + ")"
	}
	fmt.Fprintf(w, "%s %s\t%s%s\n", box, td.ID, td.Title, due)
}

func newTodoDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <todo-id>",
		Short: "Toggle a to-do between open and done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if !a.Todos.Toggle(args[0]) {
					return fmt.Errorf("no todo %s", args[0])
				}
				for _, td := range a.Todos.Get().Todos {
					if td.ID == args[0] {
						printTodo(cmd.OutOrStdout(), td)
					}
				}
				return nil
			})
		},
	}
}

func newTodoRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <todo-id>",
		Short: "Delete a to-do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if !a.Todos.Remove(args[0]) {
					return fmt.Errorf("no todo %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Todo removed: %s\n", args[0])
				return nil
			})
		},
	}
}

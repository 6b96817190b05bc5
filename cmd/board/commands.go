package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"taskboard/internal/models/task"
	"taskboard/internal/worker"

	"github.com/spf13/cobra"
)

func showCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return renderJSON(cmd.OutOrStdout(), s.engine.View())
			}
			renderBoard(cmd.OutOrStdout(), s.engine.View())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func addCmd(opts *globalOptions) *cobra.Command {
	var (
		description string
		category    string
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCategory(category)
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			created, err := s.engine.Create(cmd.Context(), task.Draft{
				Title:       args[0],
				Description: description,
				Category:    c,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s in %s\n", created.ID, created.Category)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&category, "category", "C", task.ToDo.String(), "Column: To-Do, In Progress or Done")
	return cmd
}

func moveCmd(opts *globalOptions) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "move [id] [category]",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCategory(args[1])
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			t, err := s.resolveTask(args[0])
			if err != nil {
				return err
			}
			if index < 0 {
				err = s.engine.Move(cmd.Context(), t.ID, c)
			} else {
				err = s.engine.Executor().ApplyMoveAt(cmd.Context(), t.ID, c, index)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s\n", t.ID, c)
			return nil
		},
	}
	cmd.Flags().IntVarP(&index, "index", "i", -1, "Position in the target column (default: end)")
	return cmd
}

func reorderCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder [category] [from] [to]",
		Short: "Move the task at position from to position to within a column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("from: %w", err)
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("to: %w", err)
			}
			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			column := s.engine.View().Column(c)
			if from < 0 || from >= len(column) {
				return fmt.Errorf("%s has %d tasks, no position %d", c, len(column), from)
			}
			if err := s.engine.Reorder(cmd.Context(), column[from].ID, c, from, to); err != nil {
				return err
			}
			renderBoard(cmd.OutOrStdout(), s.engine.View())
			return nil
		},
	}
}

func editCmd(opts *globalOptions) *cobra.Command {
	var (
		title       string
		description string
		category    string
	)
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change a task's title, description or column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch task.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("category") {
				c, err := parseCategory(category)
				if err != nil {
					return err
				}
				patch.Category = &c
			}
			if patch.Title == nil && patch.Description == nil && patch.Category == nil {
				return fmt.Errorf("nothing to change: pass --title, --description or --category")
			}

			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			t, err := s.resolveTask(args[0])
			if err != nil {
				return err
			}
			if err := s.engine.Edit(cmd.Context(), t.ID, patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "T", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&category, "category", "C", "", "New column")
	return cmd
}

func deleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			t, err := s.resolveTask(args[0])
			if err != nil {
				return err
			}
			if err := s.engine.Delete(cmd.Context(), t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", t.ID)
			return nil
		},
	}
}

func watchCmd(opts *globalOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reprint the board whenever it is resynced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := open(ctx, opts)
			if err != nil {
				return err
			}
			every := s.cfg.Board.SyncInterval
			if interval > 0 {
				every = interval
			}
			out := cmd.OutOrStdout()
			renderBoard(out, s.engine.View())

			w := worker.NewSyncWorker(s.engine, &every, s.cfg.Board.RequestTimeout)
			w.OnSync(func() {
				fmt.Fprintf(out, "\n-- %s --\n", time.Now().Format(time.TimeOnly))
				renderBoard(out, s.engine.View())
			})
			w.Start(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "n", 0, "Resync interval (default: board.sync_interval)")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"parrotbot/internal/archive"
	"parrotbot/internal/domain"
	"parrotbot/internal/markov"
	"parrotbot/internal/parrot"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// withService loads the config and opens the archive for one offline command.
func withService(fn func(ctx context.Context, svc *parrot.Service, store *archive.SQLiteStore) error) error {
	cfg, closeLog, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer closeLog()

	svc, store, err := openService(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(context.Background(), svc, store)
}

func parrotCmd() *cobra.Command {
	var chatID int64
	var count int

	cmd := &cobra.Command{
		Use:   "parrot <username>",
		Short: "Generate messages in a user's style from their history in a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if chatID == 0 {
				return fmt.Errorf("--chat is required")
			}
			return withService(func(ctx context.Context, svc *parrot.Service, _ *archive.SQLiteStore) error {
				for i := 0; i < count; i++ {
					text, err := svc.GenerateFor(ctx, args[0], chatID)
					switch {
					case errors.Is(err, parrot.ErrUserNotFound),
						errors.Is(err, parrot.ErrNoHistory),
						errors.Is(err, markov.ErrEmptyModel):
						return err
					case err != nil:
						return fmt.Errorf("generate: %w", err)
					}
					fmt.Println(text)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "chat id whose history is used")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of messages to generate")
	return cmd
}

func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <user-id>",
		Short: "Delete every archived message of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			return withService(func(ctx context.Context, svc *parrot.Service, _ *archive.SQLiteStore) error {
				n, err := svc.Forget(ctx, userID)
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d message(s) of user %d\n", n, userID)
				return nil
			})
		},
	}
}

func trackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track <user-id> <true|false>",
		Short: "Turn archiving of a user's messages on or off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			tracked, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid tracking value %q: %w", args[1], err)
			}
			return withService(func(ctx context.Context, svc *parrot.Service, _ *archive.SQLiteStore) error {
				if err := svc.SetTracking(ctx, userID, tracked); err != nil {
					return err
				}
				fmt.Printf("Tracking of user %d is now %t\n", userID, tracked)
				return nil
			})
		},
	}
}

func entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List known users and groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, _ *parrot.Service, store *archive.SQLiteStore) error {
				entities, err := store.ListEntities(ctx)
				if err != nil {
					return err
				}
				table := newTable([]string{"ID", "Kind", "Name", "Tracked"})
				table.AppendBulk(lo.Map(entities, func(e domain.Entity, _ int) []string {
					return entityRow(e)
				}))
				table.Render()
				return nil
			})
		},
	}
}

func entityRow(e domain.Entity) []string {
	id := strconv.FormatInt(e.EntityID(), 10)
	switch v := e.(type) {
	case domain.User:
		return []string{id, "user", v.DisplayName(), strconv.FormatBool(v.Tracked)}
	case domain.Group:
		return []string{id, "group", v.DisplayName(), "-"}
	}
	return []string{id, "?", e.DisplayName(), "-"}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <chat-id>",
		Short: "Show archived message counts per user in a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}
			return withService(func(ctx context.Context, svc *parrot.Service, _ *archive.SQLiteStore) error {
				stats, err := svc.Stats(ctx, chatID)
				if err != nil {
					return err
				}
				table := newTable([]string{"User ID", "User", "Messages"})
				table.AppendBulk(lo.Map(stats, func(s domain.SenderStats, _ int) []string {
					return []string{strconv.FormatInt(s.User.ID, 10), s.User.DisplayName(), strconv.Itoa(s.Messages)}
				}))
				table.SetFooter([]string{"", "Total", strconv.Itoa(lo.SumBy(stats, func(s domain.SenderStats) int { return s.Messages }))})
				table.Render()
				return nil
			})
		},
	}
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

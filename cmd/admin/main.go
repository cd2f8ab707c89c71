package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"relaychat/backend/internal/auth"
	"relaychat/backend/internal/chathub"
	"relaychat/backend/internal/chats"
	"relaychat/backend/internal/config"
	"relaychat/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  user <user_id>            show a user profile
  chats <user_id>           list the chats a user belongs to
  delete-group <chat_id>    delete a group and notify its members
  purge-otp <phone>         drop a pending verification code`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	store := storage.NewStorageService(db, rdb, cfg.StoreTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	command, args := os.Args[1], os.Args[2:]
	if len(args) != 1 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch command {
	case "user":
		err = showUser(ctx, store, args[0])
	case "chats":
		err = listChats(ctx, store, args[0])
	case "delete-group":
		err = deleteGroup(ctx, cfg, store, rdb, log, args[0])
	case "purge-otp":
		err = purgeOTP(ctx, store, args[0])
	default:
		fmt.Printf("Unknown command %q\n\n%s\n", command, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func showUser(ctx context.Context, s storage.UserStore, userID string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	table := newTable("Field", "Value")
	table.AppendBulk([][]string{
		{"id", user.ID},
		{"display name", user.DisplayName},
		{"phone", deref(user.PhoneNumber)},
		{"email", deref(user.Email)},
		{"status", user.Status},
		{"last seen", formatMillis(user.LastSeen)},
		{"push token", strconv.FormatBool(user.PushToken != "")},
	})
	table.Render()
	return nil
}

func listChats(ctx context.Context, s storage.ChatStore, userID string) error {
	list, err := s.ListChatsForUser(ctx, userID)
	if err != nil {
		return err
	}
	table := newTable("ID", "Kind", "Name", "Members", "Last message", "At")
	for _, c := range list {
		kind := "pair"
		if c.IsGroup {
			kind = "group"
		}
		table.Append([]string{
			c.ID,
			kind,
			deref(c.GroupName),
			strings.Join(c.Participants, ","),
			c.LastMessage,
			formatMillis(c.LastMessageTimestamp),
		})
	}
	table.Render()
	fmt.Printf("%d chat(s)\n", len(list))
	return nil
}

// deleteGroup notifies members and closes the room through the pub/sub relay
// when it is enabled, so servers holding their sockets apply both.
func deleteGroup(ctx context.Context, cfg *config.Config, s *storage.Service, rdb *redis.Client, log *slog.Logger, chatID string) error {
	hub := chathub.NewManagerService(log, cfg.CloseSuperseded)
	if cfg.PubSubEnabled {
		hub.SetRelay(chathub.NewRedisRelay(rdb, log))
	}
	if err := chats.NewService(s, hub, log).ForceDeleteGroup(ctx, chatID); err != nil {
		return err
	}
	fmt.Printf("Group %s has been deleted.\n", chatID)
	return nil
}

func purgeOTP(ctx context.Context, s storage.OTPStore, phone string) error {
	normalized := auth.NormalizePhone(phone)
	keys := []string{normalized}
	if raw := strings.TrimSpace(phone); raw != normalized {
		keys = append(keys, raw)
	}
	if err := s.DeleteOTP(ctx, keys...); err != nil {
		return err
	}
	fmt.Printf("Pending code for %s has been removed.\n", normalized)
	return nil
}

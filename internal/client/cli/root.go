package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	s = s + string(a.getMode())
	return fmt.Sprintf("(%s)", s)
}

// Root runs the interactive command loop until exit or EOF.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to notekeeper (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	a.Login(ctx)

	events, cancelEvents := a.noteService.Events().Subscribe()
	defer cancelEvents()
	go func() {
		for ev := range events {
			if ev.Remote {
				fmt.Printf("\n[sync] note #%d %s on another device\n", ev.LocalID, ev.Type)
			}
		}
	}()

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	for {
		fmt.Printf("nk %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			fmt.Println("Bye!")
			return
		}

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				fmt.Println("Available commands: register, login, exit")
			case "register":
				a.Register(ctx)
			case "login":
				a.Login(ctx)
			default:
				fmt.Println("Please log in first ('login' or 'register')")
			}
			continue
		}

		switch cmd {
		case "help":
			fmt.Println("Available commands: add, list, show <id>, edit <id>, delete <id>,")
			fmt.Println("  attach <id> <path>, fetch <id> <att-id>, retry, sync, status, logout, exit")
		case "add":
			a.addNote(ctx)
		case "list", "l":
			a.list(ctx)
		case "show", "view":
			a.show(ctx, args)
		case "edit":
			a.editNote(ctx, args)
		case "delete", "rm":
			a.delete(ctx, args)
		case "attach":
			a.attach(ctx, args)
		case "fetch":
			a.fetch(ctx, args)
		case "retry":
			a.retryUploads(ctx)
		case "sync":
			a.syncNow(ctx)
		case "status":
			a.status(ctx)
		case "logout":
			a.Logout(ctx)
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

// Close releases the app's resources. Safe to call after Root returns.
func (a *App) Close(ctx context.Context) {
	a.coordinator.Stop()
	if err := a.authService.Close(ctx); err != nil {
		a.logger.Warn(ctx, "failed to close services", "error", err)
	}
	if a.repos != nil && a.repos.DB != nil {
		_ = a.repos.DB.Close()
	}
}

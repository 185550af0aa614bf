package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (a *App) addNote(ctx context.Context) {
	title, err := GetSimpleText(a.reader, "Enter title", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	body, err := GetMultiline(a.reader, "Enter note text", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	lockAnswer, err := GetSimpleText(a.reader, "Lock this note? (y/N)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	lock := strings.EqualFold(lockAnswer, "y") || strings.EqualFold(lockAnswer, "yes")

	note, err := a.noteService.Add(ctx, title, body, lock, a.password)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("Saved note #%d\n", note.LocalID)
}

func (a *App) editNote(ctx context.Context, args []string) {
	id, ok := parseID(args, "edit")
	if !ok {
		return
	}

	current, err := a.noteService.Get(ctx, id, a.password)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	title, err := GetSimpleText(a.reader, fmt.Sprintf("Enter title [%s]", current.Title), os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if title == "" {
		title = current.Title
	}

	body, err := GetMultiline(a.reader, "Enter note text", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if body == "" {
		body = current.Body
	}

	if err := a.noteService.Update(ctx, id, title, body, current.Locked, a.password); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("Updated note #%d\n", id)
}

func (a *App) list(ctx context.Context) {
	items, err := a.noteService.List(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if len(items) == 0 {
		fmt.Println("No notes yet")
		return
	}

	for _, n := range items {
		locked := ""
		if n.Locked {
			locked = " [locked]"
		}
		fmt.Printf("%4d  %s%s  (%s)\n", n.LocalID, n.Title, locked, n.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (a *App) show(ctx context.Context, args []string) {
	id, ok := parseID(args, "show")
	if !ok {
		return
	}

	note, err := a.noteService.Get(ctx, id, a.password)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("Title:", note.Title)
	fmt.Println("Created:", note.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Println("Updated:", note.UpdatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Println()
	fmt.Println(note.Body)

	files, err := a.attachService.List(ctx, id)
	if err == nil && len(files) > 0 {
		fmt.Println()
		fmt.Println("Attachments:")
		for _, f := range files {
			fmt.Printf("  %d  %s (%s)\n", f.ID, f.FileName, f.Status)
		}
	}
}

func (a *App) delete(ctx context.Context, args []string) {
	id, ok := parseID(args, "delete")
	if !ok {
		return
	}

	if err := a.noteService.Delete(ctx, id); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("Deleted note #%d\n", id)
}

func parseID(args []string, cmd string) (int64, bool) {
	if len(args) == 0 {
		fmt.Printf("Usage: %s <id>\n", cmd)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("Invalid id:", args[0])
		return 0, false
	}
	return id, true
}

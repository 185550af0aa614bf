package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

func (a *App) attach(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: attach <note-id> <file-path>")
		return
	}
	id, ok := parseID(args, "attach")
	if !ok {
		return
	}

	att, err := a.attachService.Attach(ctx, id, args[1], a.password)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if att.Status == models.AttachmentUploaded {
		fmt.Printf("Attached %s to note #%d\n", att.FileName, id)
	} else {
		fmt.Printf("Attached %s to note #%d (upload pending, will retry)\n", att.FileName, id)
	}
}

func (a *App) fetch(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: fetch <note-id> <attachment-id>")
		return
	}
	id, ok := parseID(args, "fetch")
	if !ok {
		return
	}

	aid, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("Invalid attachment id:", args[1])
		return
	}

	files, err := a.attachService.List(ctx, id)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	for i := range files {
		if files[i].ID == aid {
			path, err := a.attachService.Download(ctx, &files[i], ".", a.password)
			if err != nil {
				fmt.Println("error:", err)
				return
			}
			fmt.Println("Saved to", path)
			return
		}
	}

	fmt.Println("No such attachment on note", id)
}

func (a *App) retryUploads(ctx context.Context) {
	if err := a.attachService.RetryPendingUploads(ctx); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("Pending uploads retried")
}

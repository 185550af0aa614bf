package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	enginesync "github.com/dmitrijs2005/notekeeper/internal/client/sync"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// syncNow runs an immediate full cycle, re-probing push entitlement so a
// plan upgrade takes effect without a re-login.
func (a *App) syncNow(ctx context.Context) {
	a.caps.setEntitled(true)

	err := a.coordinator.Flush(ctx)
	if err != nil {
		if errors.Is(err, common.ErrPushForbidden) {
			a.caps.setEntitled(false)
			fmt.Println("Your plan is read-only on this device: changes stay local until you upgrade.")
			return
		}
		fmt.Println("Sync failed:", err)
		return
	}

	fmt.Println("Sync complete")
}

func (a *App) status(ctx context.Context) {
	st := a.coordinator.Status()
	fmt.Println("Mode:    ", a.getMode())
	fmt.Println("Sync:    ", st.State)
	if st.Pushing || st.Pulling {
		fmt.Println("Activity: push:", st.Pushing, "pull:", st.Pulling)
	}
	if !a.caps.Entitled() {
		fmt.Println("Push:     disabled (read-only plan)")
	}

	entries, err := a.repos.Ledger.Get(ctx, true)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	pending, failed := 0, 0
	for _, e := range entries {
		if e.Status == ledger.StatusFailed {
			failed++
		} else {
			pending++
		}
	}
	fmt.Printf("Outstanding changes: %d pending, %d failed\n", pending, failed)

	if st.State == enginesync.StateListening {
		if wm, err := a.session.Watermark(ctx); err == nil && !wm.IsZero() {
			fmt.Println("Caught up through:", wm.Local().Format("2006-01-02 15:04:05"))
		}
	}
}

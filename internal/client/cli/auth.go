package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

func (a *App) Register(ctx context.Context) {
	userName, err := GetSimpleText(a.reader, "Enter user name (email)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		fmt.Println("Registration failed:", err)
		return
	}

	fmt.Println("Registered. You can now log in.")
}

func (a *App) Login(ctx context.Context) {
	userName, err := GetSimpleText(a.reader, "Enter user name (email)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer common.WipeByteArray(password)

	mode := ModeDisabled

	masterKey, err := a.authService.OnlineLogin(ctx, userName, password)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			fmt.Println("Server unavailable, trying offline login...")
			masterKey, err = a.authService.OfflineLogin(ctx, userName, password)
			if err != nil {
				fmt.Println("Offline login failed:", err)
			} else {
				fmt.Println("Logged in offline")
				mode = ModeOffline
			}
		} else {
			fmt.Println("Login failed:", err)
		}
	} else {
		fmt.Println("Logged in")
		mode = ModeOnline
	}

	if masterKey == nil {
		return
	}

	a.masterKey = masterKey
	a.password = string(password)
	a.userName = userName
	a.setMode(mode)
	a.caps.setValid(true)

	if err := a.coordinator.Start(ctx); err != nil {
		fmt.Println("warning: sync not started:", err)
	}
}

func (a *App) Logout(ctx context.Context) {
	a.coordinator.Stop()
	a.caps.setValid(false)
	common.WipeByteArray(a.masterKey)
	a.masterKey = nil
	a.password = ""
	a.userName = ""
	a.setMode(ModeDisabled)
	fmt.Println("Logged out")
}

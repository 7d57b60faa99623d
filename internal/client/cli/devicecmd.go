package cli

import (
	"context"
	"fmt"
	"os"
)

// Devices lists the user's active devices.
func (a *App) Devices(ctx context.Context) error {
	list, err := a.registry.List(ctx, a.userID)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		printlnFn("No devices.")
		return nil
	}
	for _, d := range list {
		marker := " "
		if d.IsCurrent {
			marker = "*"
		}
		printlnFn(fmt.Sprintf("%s %s  %s (%s)  last sync %s",
			marker, d.DeviceID, d.DisplayName, d.DeviceType, d.LastSync.Format("2006-01-02 15:04")))
	}
	return nil
}

// Deactivate withdraws a device's authorization.
func (a *App) Deactivate(ctx context.Context) error {
	deviceID, err := getSimpleText(a.reader, "Enter device id", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.registry.Deactivate(ctx, a.userID, deviceID); err != nil {
		return err
	}
	printlnFn("Deactivated.")
	return nil
}

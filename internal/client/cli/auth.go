package cli

import (
	"context"
	"errors"
	"os"

	"github.com/mlevitan/clinisync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Init creates the key record for a new user and registers this device.
// An existing key record is refused; rotation is the only way to replace it.
func (a *App) Init(ctx context.Context) error {
	userID, err := getSimpleText(a.reader, "Enter user id", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Choose master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	key, err := a.keys.Generate(ctx, userID, password)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			printlnFn("A key already exists for this user. Use 'rotate' to change the password.")
			return err
		}
		return err
	}

	if _, err := a.registry.Register(ctx, userID, "", ""); err != nil {
		return err
	}

	a.userID = userID
	a.masterKey = key
	printlnFn("Key created. You are unlocked.")
	return nil
}

// Login verifies the master password and unlocks the session key for this
// process. Wrong password, unknown user and tampered key record all produce
// the same message.
func (a *App) Login(ctx context.Context) error {
	userID, err := getSimpleText(a.reader, "Enter user id", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	key, err := a.keys.Verify(ctx, userID, password)
	if err != nil {
		printlnFn("Login failed.")
		return err
	}

	if _, err := a.registry.Register(ctx, userID, "", ""); err != nil {
		return err
	}

	a.userID = userID
	a.masterKey = key
	printlnFn("Unlocked.")
	return nil
}

// Rotate changes the master password, re-encrypting every stored session
// under the new key in one transaction.
func (a *App) Rotate(ctx context.Context) error {
	oldPassword, err := getPassword(os.Stdout, "Enter current master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := getPassword(os.Stdout, "Choose new master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	if err := a.keys.Rotate(ctx, a.userID, oldPassword, newPassword, a.sessions.Reencryptor(a.userID)); err != nil {
		printlnFn("Rotation failed.")
		return err
	}

	// the old unlocked key is dead now
	common.WipeByteArray(a.masterKey)
	key, err := a.keys.Verify(ctx, a.userID, newPassword)
	if err != nil {
		a.masterKey = nil
		a.userID = ""
		return err
	}
	a.masterKey = key
	printlnFn("Password rotated.")
	return nil
}

// Logout wipes the unlocked key from memory.
func (a *App) Logout(ctx context.Context) error {
	common.WipeByteArray(a.masterKey)
	a.masterKey = nil
	a.userID = ""
	return nil
}

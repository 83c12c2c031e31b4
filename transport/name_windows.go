//go:build windows

package transport

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func resolveNativeName(name string, userSpecific bool) (string, error) {
	if !userSpecific {
		return `\\.\pipe\` + name, nil
	}
	sid, err := currentUserSID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`\\.\pipe\%s.%s`, name, sid), nil
}

func currentUserSID() (string, error) {
	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return "", err
	}
	return user.User.Sid.String()
}

package utils

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

const minPasswordLen = 8

// PromptPasswordTwice reads a password from the terminal without echo, twice,
// and loops until both entries match and meet the minimum length.
func PromptPasswordTwice() (string, error) {
	for {
		first, err := readPassword("Password: ")
		if err != nil {
			return "", err
		}
		if len(first) < minPasswordLen {
			fmt.Printf("Password must be at least %d characters.\n", minPasswordLen)
			continue
		}
		second, err := readPassword("Confirm password: ")
		if err != nil {
			return "", err
		}
		if first != second {
			fmt.Println("Entries do not match, try again.")
			continue
		}
		return first, nil
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

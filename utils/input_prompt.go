package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/morler/codeassist/constants/lipgloss"
	"gitlab.com/tozd/go/errors"
)

// InputPromptWithContext prompts the user with context cancellation support
func InputPromptWithContext(ctx context.Context, reader *bufio.Reader) (string, error) {
	return AskWithContext(ctx, reader, "")
}

// AskWithContext prints label followed by the prompt marker and reads one
// line. It returns io.EOF once the input is exhausted.
func AskWithContext(ctx context.Context, reader *bufio.Reader, label string) (string, error) {
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		if label != "" {
			fmt.Print(lipgloss.Info.Render(label) + " ")
		}
		fmt.Print(lipgloss.BlueSky.Render("> "))

		userInput, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && userInput != "") {
			if errors.Is(err, io.EOF) {
				errChan <- io.EOF
			} else {
				errChan <- errors.Errorf("🚫 Error reading input: %w", err)
			}
			return
		}

		inputChan <- strings.TrimSpace(userInput)
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case err := <-errChan:
		return "", err
	case input := <-inputChan:
		return input, nil
	}
}

// ConfirmPrompt asks a yes/no question; only "y" and "yes" confirm.
func ConfirmPrompt(question string, reader *bufio.Reader) (bool, error) {
	fmt.Print(lipgloss.Yellow.Render(question + " (y/N): "))

	answer, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Errorf("🚫 Error reading input: %w", err)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

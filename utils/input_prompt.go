package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nanunh/genstack/constants/lipgloss"
)

// ConfirmPrompt asks a yes/no question and honours context cancellation.
// Anything but y/yes is a no.
func ConfirmPrompt(ctx context.Context, reader *bufio.Reader, question string) (bool, error) {
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		fmt.Print(lipgloss.BlueSky.Render(question + " (y/N) > "))

		userInput, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			errChan <- fmt.Errorf("error reading input: %w", err)
			return
		}
		inputChan <- strings.ToLower(strings.TrimSpace(userInput))
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return false, ctx.Err()
	case err := <-errChan:
		return false, err
	case input := <-inputChan:
		return input == "y" || input == "yes", nil
	}
}

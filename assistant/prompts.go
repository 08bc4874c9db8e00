package assistant

import (
	"fmt"
	"strings"
	"unicode"
)

const fence = "```"

// ModifyPrompt asks for the full rewritten content of a file.
func ModifyPrompt(content, instruction string) string {
	return fmt.Sprintf("Current file content:\n%s\n%s\n%s\n\n"+
		"Modification instruction: %s\n\n"+
		"Please provide the complete modified file content while maintaining the original structure and functionality. "+
		"Only output the modified code without any explanations.", fence, content, fence, instruction)
}

// CreatePrompt asks for the content of a new file at relPath.
func CreatePrompt(relPath, requirements string) string {
	return fmt.Sprintf("Create a new file with the following requirements:\n"+
		"File path: %s\n"+
		"Requirements: %s\n\n"+
		"Please provide only the complete file content without any explanations.", relPath, requirements)
}

// ExtractCode turns a generation response into file content. A response
// opening with a fence yields the text between the end of the fence line and
// the last closing fence, and a one-line fenced reply drops its language
// tag. Anything else is used whole. All results are trimmed.
func ExtractCode(response string) string {
	text := strings.TrimLeftFunc(response, unicode.IsSpace)
	if !strings.HasPrefix(text, fence) {
		return strings.TrimSpace(text)
	}

	newline := strings.IndexByte(text, '\n')
	if newline < 0 {
		inner := strings.TrimSpace(strings.Trim(text, "`"))
		if _, rest, found := strings.Cut(inner, " "); found {
			return strings.TrimSpace(rest)
		}
		return inner
	}

	body := text[newline+1:]
	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"github.com/samber/lo"

	"chat-relay/errors"
)

//go:embed censored/*.txt
var censoredFS embed.FS

// LoadDefault builds a Moderator from the embedded per-language word lists
// and returns the languages that were loaded ("en.txt" -> "en").
func LoadDefault(censoredChar rune) (*Moderator, []string, error) {
	words, languages, err := loadWords(censoredFS, "censored")
	if err != nil {
		return nil, nil, err
	}
	moderator, err := NewModerator(words, censoredChar)
	if err != nil {
		return nil, nil, err
	}
	return moderator, languages, nil
}

// loadWords reads every .txt file in the directory as one language
// dictionary, one word per line, and deduplicates across languages.
func loadWords(fsys embed.FS, path string) ([]string, []string, error) {
	entries, err := fs.ReadDir(fsys, path)
	if err != nil {
		return nil, nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fsys.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, nil, errors.ErrEmptyWords
	}

	return lo.Keys(uniqueWords), languages, nil
}

package question

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadFile reads a question bank from path. Three formats are supported:
//
//	colon-delimited: id:text:option1:option2:option3:option4:correct
//	pipe-delimited:  text|option1|option2|option3|option4|correct
//	JSON:            [{"id": 1, "text": "...", "choices": [...], "answer": 2}]
//
// Files ending in .json use the JSON form; everything else is treated as a
// delimited file with the delimiter detected per line. Malformed entries
// are skipped and counted rather than failing the load, but a file that
// yields no usable questions at all is an error.
func LoadFile(path string) ([]Question, int, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadJSONFile(path)
	}
	return loadDelimitedFile(path)
}

func loadDelimitedFile(path string) ([]Question, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening question file: %w", err)
	}
	defer f.Close()

	var (
		questions []Question
		skipped   int
		nextID    = 1
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var q Question
		var perr error
		if strings.Contains(line, "|") {
			q, perr = parsePipeLine(line)
		} else {
			q, perr = parseColonLine(line)
		}
		if perr != nil {
			skipped++
			continue
		}

		if q.ID == 0 {
			q.ID = nextID
		}
		if q.Validate() != nil {
			skipped++
			continue
		}

		questions = append(questions, q)
		if q.ID >= nextID {
			nextID = q.ID + 1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading question file: %w", err)
	}
	if len(questions) == 0 {
		return nil, skipped, fmt.Errorf("no usable questions in %s", path)
	}

	return questions, skipped, nil
}

// parseColonLine handles the id:text:opt1:opt2:opt3:opt4:correct form. Any
// fields beyond the seventh are ignored.
func parseColonLine(line string) (Question, error) {
	parts := strings.Split(line, ":")
	if len(parts) < 7 {
		return Question{}, fmt.Errorf("want 7 colon-delimited fields, got %d", len(parts))
	}

	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Question{}, fmt.Errorf("bad question id %q: %w", parts[0], err)
	}
	correct, err := strconv.Atoi(strings.TrimSpace(parts[6]))
	if err != nil {
		return Question{}, fmt.Errorf("bad correct index %q: %w", parts[6], err)
	}

	return Question{
		ID:      id,
		Text:    strings.TrimSpace(parts[1]),
		Options: trimAll(parts[2:6]),
		Correct: correct,
	}, nil
}

// parsePipeLine handles the text|opt1|opt2|opt3|opt4|correct form, which
// carries no id; ids are assigned in file order by the caller.
func parsePipeLine(line string) (Question, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 6 {
		return Question{}, fmt.Errorf("want 6 pipe-delimited fields, got %d", len(parts))
	}

	correct, err := strconv.Atoi(strings.TrimSpace(parts[5]))
	if err != nil {
		return Question{}, fmt.Errorf("bad correct index %q: %w", parts[5], err)
	}

	return Question{
		Text:    strings.TrimSpace(parts[0]),
		Options: trimAll(parts[1:5]),
		Correct: correct,
	}, nil
}

func trimAll(fields []string) []string {
	trimmed := make([]string, len(fields))
	for i, f := range fields {
		trimmed[i] = strings.TrimSpace(f)
	}
	return trimmed
}

// jsonQuestion mirrors the JSON bank format. The same field aliases the
// wire accepts apply here too.
type jsonQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
	Correct int      `json:"correct"`
}

func loadJSONFile(path string) ([]Question, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening question file: %w", err)
	}

	var raw []jsonQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	var (
		questions []Question
		skipped   int
		nextID    = 1
	)
	for _, jq := range raw {
		q := Question{ID: jq.ID, Text: jq.Text, Options: jq.Choices, Correct: jq.Answer}
		if len(q.Options) == 0 {
			q.Options = jq.Options
		}
		if q.Correct == 0 {
			q.Correct = jq.Correct
		}
		if q.ID == 0 {
			q.ID = nextID
		}
		if q.Validate() != nil {
			skipped++
			continue
		}

		questions = append(questions, q)
		if q.ID >= nextID {
			nextID = q.ID + 1
		}
	}
	if len(questions) == 0 {
		return nil, skipped, fmt.Errorf("no usable questions in %s", path)
	}

	return questions, skipped, nil
}

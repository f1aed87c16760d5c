package parser

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"campus-assistant/internal/models"
)

// InstructionLine is one non-blank line of the instruction text together
// with the heading it appears under.
type InstructionLine struct {
	Heading string
	Text    string
	LineNo  int
}

// Instruction is the parsed static instruction document.
type Instruction struct {
	Raw    string
	Update string
	Lines  []InstructionLine
}

var headingRe = regexp.MustCompile(`^#{1,6}\s+(.+?)(?:\s+#+)?$`)

type instructionState struct {
	heading string
	result  Instruction
}

// LoadInstruction reads and parses the instruction file at path.
func LoadInstruction(path string) (*Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseInstruction(string(data)), nil
}

// ParseInstruction splits text into lines, tracking the current heading and
// the first line that announces an update date.
func ParseInstruction(text string) *Instruction {
	state := instructionState{result: Instruction{Raw: text}}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		processInstructionLine(line, lineNo, &state)
	}
	return &state.result
}

func processInstructionLine(line string, lineNo int, state *instructionState) {
	if m := headingRe.FindStringSubmatch(line); m != nil {
		state.heading = strings.TrimSpace(m[1])
	}
	if state.result.Update == "" && strings.Contains(line, models.UpdateMarker) {
		state.result.Update = line
	}
	state.result.Lines = append(state.result.Lines, InstructionLine{
		Heading: state.heading,
		Text:    line,
		LineNo:  lineNo,
	})
}

// Match returns the lines sharing a keyword with question, in file order
// and without duplicates. A keyword counts only when it occurs in both the
// question and the line, case-insensitively.
func (in *Instruction) Match(question string, keywords []string) []InstructionLine {
	if in == nil {
		return nil
	}
	q := strings.ToLower(question)
	var active []string
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(q, k) {
			active = append(active, k)
		}
	}
	if len(active) == 0 {
		return nil
	}

	var matched []InstructionLine
	for _, line := range in.Lines {
		lower := strings.ToLower(line.Text)
		for _, k := range active {
			if strings.Contains(lower, k) {
				matched = append(matched, line)
				break
			}
		}
	}
	return matched
}

var wordRe = regexp.MustCompile(`\p{L}+`)

// QuestionKeywords derives keywords from the question itself: words of at
// least four letters, lowercased, first occurrence only.
func QuestionKeywords(question string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(question), -1) {
		if len([]rune(w)) < 4 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Package docregen regenerates the output sections of runnable code blocks
// embedded in markdown files.
//
// Two block styles are recognized. The comment style hides the code in HTML
// comments:
//
//	<!-- CODE:START -->
//	<!-- print("hello") -->
//	<!-- CODE:END -->
//	<!-- OUTPUT:START -->
//	hello
//	<!-- OUTPUT:END -->
//
// CODE:BASH:START marks a bash block. The fenced style is a regular fenced
// code block whose info string contains "markdown-code-runner", followed by
// the same OUTPUT section. Everything between the OUTPUT markers is replaced
// on each run.
package docregen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var parseLog = logger.New("docregen:parse")

const (
	markerCodeStart     = "<!-- CODE:START -->"
	markerCodeBashStart = "<!-- CODE:BASH:START -->"
	markerCodeEnd       = "<!-- CODE:END -->"
	markerOutputStart   = "<!-- OUTPUT:START -->"
	markerOutputEnd     = "<!-- OUTPUT:END -->"

	// FencedMarker flags a fenced code block as runnable.
	FencedMarker = "markdown-code-runner"

	// GeneratedWarning opens every regenerated output section.
	GeneratedWarning = "<!-- ⚠️ This content is auto-generated by `ghpipe regen`. Do not edit manually. -->"
)

// Style is the syntax a block was written in.
type Style string

const (
	StyleComment Style = "comment"
	StyleFenced  Style = "fenced"
)

// Block is one runnable code block and the location of its output section.
type Block struct {
	Language string
	Code     string
	Style    Style
	// Line is the 1-based line of the block's opening marker or fence.
	Line int

	outputStart int
	outputEnd   int
}

// Parse finds all runnable blocks in source, in document order.
func Parse(source []byte) ([]Block, error) {
	lines := strings.Split(string(source), "\n")
	fenced := scanFences(source)

	var blocks []Block
	for i := 0; i < len(lines); {
		if f, ok := fenced.at(i); ok {
			if !f.runnable {
				i = f.close + 1
				continue
			}
			block := Block{Language: f.language, Code: f.code, Style: StyleFenced, Line: f.open + 1}
			next, err := attachOutput(&block, lines, f.close+1)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
			i = next
			continue
		}

		trimmed := strings.TrimSpace(lines[i])
		if trimmed != markerCodeStart && trimmed != markerCodeBashStart {
			i++
			continue
		}

		block := Block{Language: "python", Style: StyleComment, Line: i + 1}
		if trimmed == markerCodeBashStart {
			block.Language = "bash"
		}
		end := -1
		var code []string
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == markerCodeEnd {
				end = j
				break
			}
			code = append(code, uncomment(lines[j]))
		}
		if end < 0 {
			return nil, fmt.Errorf("line %d: code block has no %s marker", block.Line, markerCodeEnd)
		}
		block.Code = strings.Join(code, "\n")

		next, err := attachOutput(&block, lines, end+1)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
		i = next
	}

	parseLog.Printf("Found %d runnable blocks", len(blocks))
	return blocks, nil
}

// attachOutput locates the OUTPUT section following a block. Only blank
// lines may separate the two. It returns the line after the section.
func attachOutput(block *Block, lines []string, from int) (int, error) {
	i := from
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || strings.TrimSpace(lines[i]) != markerOutputStart {
		return 0, fmt.Errorf("line %d: %s block is not followed by an %s section", block.Line, block.Language, markerOutputStart)
	}
	block.outputStart = i
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == markerOutputEnd {
			block.outputEnd = j
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("line %d: output section has no %s marker", i+1, markerOutputEnd)
}

// uncomment strips the HTML comment delimiters around one line of code.
func uncomment(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "<!--")
	s = strings.TrimSuffix(s, "-->")
	s = strings.TrimPrefix(s, " ")
	return strings.TrimSuffix(s, " ")
}

type fence struct {
	open, close int
	runnable    bool
	language    string
	code        string
}

type fences []fence

// at returns the fence whose line range contains line.
func (fs fences) at(line int) (fence, bool) {
	for _, f := range fs {
		if line >= f.open && line <= f.close {
			return f, true
		}
	}
	return fence{}, false
}

// scanFences uses goldmark to find fenced code blocks. Non-runnable fences
// are returned too so markers quoted inside them are ignored.
func scanFences(source []byte) fences {
	lineStarts := []int{0}
	for i, b := range source {
		if b == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	lineOf := func(offset int) int {
		return sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > offset }) - 1
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var result fences
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var f fence
		lines := fcb.Lines()
		switch {
		case fcb.Info != nil:
			f.open = lineOf(fcb.Info.Segment.Start)
		case lines.Len() > 0:
			f.open = lineOf(lines.At(0).Start) - 1
		default:
			// A bare empty fence carries no position; it cannot be runnable.
			return ast.WalkSkipChildren, nil
		}
		f.close = f.open + lines.Len() + 1

		var code strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(source))
		}
		f.code = strings.TrimSuffix(code.String(), "\n")

		if fcb.Info != nil {
			info := string(fcb.Info.Segment.Value(source))
			f.runnable = strings.Contains(info, FencedMarker)
			f.language = string(fcb.Language(source))
		}
		result = append(result, f)
		return ast.WalkSkipChildren, nil
	})
	return result
}

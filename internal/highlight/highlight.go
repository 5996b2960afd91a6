// Package highlight renders file contents as syntax-highlighted HTML for the
// file viewer.
package highlight

import (
	"bytes"
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	Theme     = "github-dark"
	Plaintext = "plaintext"
)

var extensionLanguages = map[string]string{
	"js":         "javascript",
	"jsx":        "jsx",
	"ts":         "typescript",
	"tsx":        "tsx",
	"vue":        "vue",
	"py":         "python",
	"java":       "java",
	"cpp":        "cpp",
	"c":          "c",
	"cs":         "csharp",
	"php":        "php",
	"rb":         "ruby",
	"go":         "go",
	"rs":         "rust",
	"swift":      "swift",
	"kt":         "kotlin",
	"json":       "json",
	"html":       "html",
	"css":        "css",
	"scss":       "scss",
	"sass":       "sass",
	"less":       "less",
	"md":         "markdown",
	"yaml":       "yaml",
	"yml":        "yaml",
	"xml":        "xml",
	"sql":        "sql",
	"sh":         "bash",
	"bash":       "bash",
	"zsh":        "zsh",
	"dockerfile": "dockerfile",
}

// Result is a rendered file.
type Result struct {
	Language string `json:"language"`
	HTML     string `json:"html"`
	// Fallback is set when the text could not be tokenised and HTML is the
	// escaped source inside <pre><code>.
	Fallback bool `json:"fallback,omitempty"`
}

// LanguageFor maps a file name to a language name by its last extension.
func LanguageFor(filename string) string {
	base := path.Base(filename)
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return Plaintext
	}
	if lang, ok := extensionLanguages[strings.ToLower(base[i+1:])]; ok {
		return lang
	}
	return Plaintext
}

// Render highlights text as the language implied by filename.
func Render(filename, text string) Result {
	lang := LanguageFor(filename)
	out, err := render(lang, text)
	if err != nil {
		return Result{Language: lang, HTML: Escaped(text), Fallback: true}
	}
	return Result{Language: lang, HTML: out}
}

// Escaped wraps text in <pre><code> with HTML escaping.
func Escaped(text string) string {
	return "<pre><code>" + html.EscapeString(text) + "</code></pre>"
}

func render(lang, text string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(Theme)
	if style == nil {
		style = styles.Fallback
	}
	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", lang, err)
	}
	var buf bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4)).Format(&buf, style, iterator); err != nil {
		return "", fmt.Errorf("format %s: %w", lang, err)
	}
	return buf.String(), nil
}

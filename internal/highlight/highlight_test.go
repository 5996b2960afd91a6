package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageFor(t *testing.T) {
	cases := map[string]string{
		"main.go":             "go",
		"src/App.VUE":         "vue",
		"config.yml":          "yaml",
		"archive.tar.gz":      Plaintext,
		"Makefile":            Plaintext,
		"scripts/setup.sh":    "bash",
		"docker/x.dockerfile": "dockerfile",
	}
	for name, want := range cases {
		assert.Equal(t, want, LanguageFor(name), name)
	}
}

func TestRender_Go(t *testing.T) {
	res := Render("main.go", "package main\n\nfunc main() {}\n")
	assert.Equal(t, "go", res.Language)
	assert.False(t, res.Fallback)
	assert.Contains(t, res.HTML, "<pre")
	assert.Contains(t, res.HTML, "style=")
	assert.Contains(t, res.HTML, "package")
}

func TestRender_PlaintextEscapes(t *testing.T) {
	res := Render("notes", "<b>&</b>")
	assert.Equal(t, Plaintext, res.Language)
	assert.False(t, strings.Contains(res.HTML, "<b>"))
	assert.Contains(t, res.HTML, "&lt;b&gt;")
}

func TestEscaped(t *testing.T) {
	assert.Equal(t, "<pre><code>a &lt; b &amp;&amp; &#34;c&#34;</code></pre>", Escaped(`a < b && "c"`))
}

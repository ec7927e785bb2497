package analyzers

import (
	"path/filepath"
	"strings"
)

var extensions = map[string]string{
	".py":       "python",
	".pyi":      "python",
	".js":       "javascript",
	".jsx":      "javascript",
	".mjs":      "javascript",
	".cjs":      "javascript",
	".ts":       "typescript",
	".tsx":      "typescript",
	".mts":      "typescript",
	".rs":       "rust",
	".go":       "go",
	".css":      "css",
	".html":     "html",
	".htm":      "html",
	".md":       "markdown",
	".markdown": "markdown",
	".txt":      "text",
	".rst":      "text",
	".sh":       "shell",
	".bash":     "shell",
	".zsh":      "shell",
	".rb":       "ruby",
	".php":      "php",
	".java":     "java",
	".kt":       "kotlin",
	".yaml":     "yaml",
	".yml":      "yaml",
	".json":     "json",
	".toml":     "toml",
}

// DetectLanguage returns the language tag for a file name, or "" when the
// extension is unknown.
func DetectLanguage(name string) string {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

package library

import (
	"path/filepath"
	"strings"
)

// KnownBookExtensions contains file extensions commonly used for e-books.
// Only a subset is extractable (see extractors); the full list exists so
// that multi-part extensions like ".fb2.zip" trim cleanly from filename
// stems. The locator skips unextractable files during discovery.
var KnownBookExtensions = []string{
	".fb2.zip",
	".fb2",
	".epub",
	".pdf",
	".txt",
	".md",
	".markdown",
	".tar.gz",
	".docx",
	".doc",
	".mobi",
	".azw3",
	".azw",
	".djvu",
}

// TrimBookExtension removes a known e-book extension from a filename.
func TrimBookExtension(filename string) string {
	for _, ext := range KnownBookExtensions {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// TitleAuthorFromFilename derives a book's title and author from its
// filename. Library files conventionally use "Title - Author.extension";
// without the separator the whole stem is the title and the author is
// unknown.
func TitleAuthorFromFilename(path string) (title, author string) {
	stem := TrimBookExtension(filepath.Base(path))

	if idx := strings.LastIndex(stem, " - "); idx > 0 {
		title = strings.TrimSpace(stem[:idx])
		author = strings.TrimSpace(stem[idx+3:])
		if title != "" {
			return title, author
		}
	}
	return strings.TrimSpace(stem), ""
}

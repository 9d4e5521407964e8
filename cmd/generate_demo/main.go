// Command generate_demo creates a demo library of public domain book excerpts
// together with a matching "My Clippings.txt", so the annotate command can be
// tried without a Kindle.
// Usage: go run cmd/generate_demo/main.go [-dir path/to/demo]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const defaultDemoDir = "./demo"

type demoBook struct {
	filename string
	title    string
	author   string
	text     string
	// highlighted phrases, must occur in text
	highlights []string
}

func main() {
	dir := flag.String("dir", defaultDemoDir, "directory for the demo library and clippings file")
	flag.Parse()

	booksDir := filepath.Join(*dir, "books")
	if err := os.MkdirAll(booksDir, 0o755); err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}

	books := demoBooks()

	for _, b := range books {
		path := filepath.Join(booksDir, b.filename)
		if err := os.WriteFile(path, []byte(b.text), 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		log.Printf("Wrote %s", path)
	}

	clippingsPath := filepath.Join(*dir, "My Clippings.txt")
	if err := os.WriteFile(clippingsPath, []byte(renderClippings(books)), 0o644); err != nil {
		log.Fatalf("Failed to write clippings: %v", err)
	}
	log.Printf("Wrote %s", clippingsPath)

	log.Printf("Try: klippings annotate -clippings %q -books %q -output -", clippingsPath, booksDir)
}

func renderClippings(books []demoBook) string {
	var b strings.Builder
	location := 100
	for _, book := range books {
		for _, h := range book.highlights {
			fmt.Fprintf(&b, "%s (%s)\n", book.title, book.author)
			fmt.Fprintf(&b, "- Your Highlight at location %d-%d | Added on Saturday, 26 March 2016 18:37:26\n\n",
				location, location+1)
			fmt.Fprintf(&b, "%s\n==========\n", h)
			location += 150
		}
	}
	return b.String()
}

func demoBooks() []demoBook {
	return []demoBook{
		{
			filename: "A Tale of Two Cities - Charles Dickens.txt",
			title:    "A Tale of Two Cities",
			author:   "Charles Dickens",
			text: `Book the First. Recalled to Life.
It was the best of times, it was the worst of times,
it was the age of wisdom, it was the age of foolishness,
it was the epoch of belief, it was the epoch of incredulity,
it was the season of Light, it was the season of Darkness,
it was the spring of hope, it was the winter of despair.
We had everything before us, we had nothing before us.
`,
			highlights: []string{
				"It was the best of times, it was the worst of times",
				"it was the spring of hope, it was the winter of despair",
			},
		},
		{
			filename: "Moby Dick - Herman Melville.txt",
			title:    "Moby Dick",
			author:   "Herman Melville",
			text: `Call me Ishmael. Some years ago, never mind how long precisely,
having little or no money in my purse, and nothing particular
to interest me on shore, I thought I would sail about a little
and see the watery part of the world.
It is a way I have of driving off the spleen and regulating the circulation.
`,
			highlights: []string{
				"Call me Ishmael",
			},
		},
		{
			filename: "Pride and Prejudice - Jane Austen.txt",
			title:    "Pride and Prejudice",
			author:   "Jane Austen",
			text: `It is a truth universally acknowledged, that a single man in
possession of a good fortune, must be in want of a wife.
However little known the feelings or views of such a man may be
on his first entering a neighbourhood, this truth is so well fixed
in the minds of the surrounding families.
`,
			highlights: []string{
				"a single man in\npossession of a good fortune, must be in want of a wife",
			},
		},
	}
}

package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/DmitryBarskov/klippings/internal/annotate"
	"github.com/DmitryBarskov/klippings/internal/clippings"
	"github.com/DmitryBarskov/klippings/internal/config"
	"github.com/DmitryBarskov/klippings/internal/database"
	"github.com/DmitryBarskov/klippings/internal/library"
	"github.com/DmitryBarskov/klippings/internal/match"
	"github.com/DmitryBarskov/klippings/internal/normalizer"
	"github.com/DmitryBarskov/klippings/internal/window"
)

// ErrNothingRendered is returned when not a single clip could be rendered:
// total failure, as opposed to partial success with warnings.
var ErrNothingRendered = fmt.Errorf("no clips could be rendered")

// AnnotateCommand matches Kindle clippings against a library of book files
// and renders a notes document with surrounding context.
type AnnotateCommand struct {
	ClippingsPath string
	LibraryDir    string
	OutputPath    string
	DatabasePath  string
	WindowSize    int
	Unit          string
	Threshold     float64
	NoDedup       bool
	Save          bool
	DryRun        bool
	Verbose       bool
}

func NewAnnotateCommand(cfg *config.Config) *AnnotateCommand {
	return &AnnotateCommand{
		ClippingsPath: cfg.Paths.Clippings,
		LibraryDir:    cfg.Paths.Library,
		OutputPath:    cfg.Paths.Output,
		DatabasePath:  cfg.Paths.Database,
		WindowSize:    cfg.Context.WindowSize,
		Unit:          cfg.Context.Unit,
		Threshold:     cfg.Match.FuzzyThreshold,
		NoDedup:       !cfg.Render.DedupEnabled,
	}
}

func (cmd *AnnotateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)

	fs.StringVar(&cmd.ClippingsPath, "clippings", cmd.ClippingsPath, "Path to Kindle 'My Clippings.txt' file (required)")
	fs.StringVar(&cmd.LibraryDir, "books", cmd.LibraryDir, "Directory with book files (txt/md/pdf) (required)")
	fs.StringVar(&cmd.OutputPath, "output", cmd.OutputPath, "Output file for the rendered notes, '-' for stdout")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.DatabasePath, "Path to the local database file used with -save")
	fs.IntVar(&cmd.WindowSize, "context", cmd.WindowSize, "Number of context units on each side of a match")
	fs.StringVar(&cmd.Unit, "unit", cmd.Unit, "Context unit: line or sentence")
	fs.Float64Var(&cmd.Threshold, "threshold", cmd.Threshold, "Minimum similarity (0-1) for fuzzy matches")
	fs.BoolVar(&cmd.NoDedup, "no-dedup", cmd.NoDedup, "Keep exact-content duplicate clips")
	fs.BoolVar(&cmd.Save, "save", false, "Also save annotated clips to the local database")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse and match but write nothing")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s annotate -clippings <path> -books <dir> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Match Kindle clippings against a library of book files and render a\n")
		fmt.Fprintf(os.Stderr, "notes document with the original text surrounding each highlight.\n\n")
		fmt.Fprintf(os.Stderr, "The clippings file is typically found at:\n")
		fmt.Fprintf(os.Stderr, "  /Volumes/Kindle/documents/My Clippings.txt\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Annotate against a local library:\n")
		fmt.Fprintf(os.Stderr, "  %s annotate -clippings \"My Clippings.txt\" -books ~/Books\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Sentence-based context, wider window:\n")
		fmt.Fprintf(os.Stderr, "  %s annotate -clippings \"My Clippings.txt\" -books ~/Books -unit sentence -context 3\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview without writing anything:\n")
		fmt.Fprintf(os.Stderr, "  %s annotate -clippings \"My Clippings.txt\" -books ~/Books -dry-run -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ClippingsPath == "" {
		return fmt.Errorf("required flag -clippings not provided")
	}
	if cmd.LibraryDir == "" {
		return fmt.Errorf("required flag -books not provided")
	}

	return nil
}

func (cmd *AnnotateCommand) Run() error {
	logger := log.New(os.Stderr)
	if cmd.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	if _, err := os.Stat(cmd.ClippingsPath); os.IsNotExist(err) {
		return fmt.Errorf("clippings file not found: %s", cmd.ClippingsPath)
	}

	file, err := os.Open(cmd.ClippingsPath)
	if err != nil {
		return fmt.Errorf("failed to open clippings file: %w", err)
	}
	defer file.Close()

	parser := clippings.NewParser()
	entries, skipped, err := parser.ParseEntries(file)
	if err != nil {
		return fmt.Errorf("failed to parse clippings: %w", err)
	}

	logger.Debug("parsed clippings", "entries", len(entries), "skipped", len(skipped))

	if len(entries) == 0 && len(skipped) == 0 {
		fmt.Println("No clippings found in export file")
		return ErrNothingRendered
	}

	nz := normalizer.New()
	locator, err := library.NewLocator(cmd.LibraryDir, nz)
	if err != nil {
		return fmt.Errorf("failed to scan library: %w", err)
	}
	logger.Debug("scanned library", "dir", cmd.LibraryDir, "candidates", locator.Len())

	pipeline := annotate.NewPipeline(
		nz,
		locator,
		match.NewMatcher(cmd.Threshold),
		window.NewWindower(window.ParseUnit(cmd.Unit), cmd.WindowSize),
		!cmd.NoDedup,
		logger,
	)
	pipeline.RecordSkips(skipped)

	sections := pipeline.Run(entries)
	rendered := annotate.CountRendered(sections)
	warnings := pipeline.Warnings()

	fmt.Printf("Books: %d, clips rendered: %d, warnings: %d\n", len(sections), rendered, len(warnings))

	if cmd.Verbose {
		for i, section := range sections {
			author := section.Author
			if author == "" {
				author = "(no author)"
			}
			status := "resolved"
			if !section.Resolved() {
				status = "unresolved"
			}
			fmt.Printf("%d. \"%s\" by %s (%d clips, %s)\n",
				i+1, section.Title, author, len(section.Clips), status)
		}
	}

	if rendered == 0 {
		return ErrNothingRendered
	}

	if cmd.DryRun {
		fmt.Println("\nDry run complete. Use without -dry-run to write output.")
		return nil
	}

	doc := annotate.Render(sections)
	if err := cmd.writeOutput(doc); err != nil {
		return err
	}

	if cmd.Save {
		if err := cmd.saveToDatabase(sections, logger); err != nil {
			return err
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintf(os.Stderr, "Completed with %d warnings\n", len(warnings))
	}
	return nil
}

func (cmd *AnnotateCommand) writeOutput(doc string) error {
	if cmd.OutputPath == "-" {
		_, err := fmt.Print(doc)
		return err
	}

	absPath, err := filepath.Abs(cmd.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for output: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Notes written to %s\n", absPath)
	return nil
}

func (cmd *AnnotateCommand) saveToDatabase(sections []annotate.BookSection, logger *log.Logger) error {
	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	saved := 0
	for _, section := range sections {
		book := database.FromSection(section)
		if err := db.SaveBook(book); err != nil {
			logger.Error("failed to save book", "title", section.Title, "err", err)
			continue
		}
		saved++
	}
	fmt.Printf("Saved %d/%d books to %s\n", saved, len(sections), absDBPath)
	return nil
}

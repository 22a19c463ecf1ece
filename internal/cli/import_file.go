package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/broadcast"
	"github.com/openshelf/openshelf/internal/catalog"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/imports"
	"github.com/openshelf/openshelf/internal/database/reviews"
	"github.com/openshelf/openshelf/internal/database/shelves"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/importers"
	"github.com/openshelf/openshelf/internal/services"
)

// ImportFileCommand imports a source export from the local filesystem,
// processing items synchronously instead of through the task queue.
type ImportFileCommand struct {
	FilePath       string
	Source         string
	Username       string
	DatabasePath   string
	IncludeReviews bool
	Privacy        string
	Verbose        bool
}

func NewImportFileCommand() *ImportFileCommand {
	return &ImportFileCommand{}
}

func (cmd *ImportFileCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the source export file (required)")
	fs.StringVar(&cmd.Source, "source", "goodreads", "Export source: goodreads, storygraph or librarything")
	fs.StringVar(&cmd.Username, "user", "", "Username to import into (required, created if missing)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.IncludeReviews, "include-reviews", false, "Also import ratings and review text")
	fs.StringVar(&cmd.Privacy, "privacy", "public", "Privacy for imported reviews: public, unlisted, followers or private")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> -user <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a library export from Goodreads, The StoryGraph or LibraryThing.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file goodreads_library_export.csv -user mouse\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -file export.csv -source storygraph -user mouse -include-reviews\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	if cmd.Username == "" {
		return fmt.Errorf("required flag -user not provided")
	}

	return nil
}

func (cmd *ImportFileCommand) Run() error {
	importer, err := importers.ByName(cmd.Source)
	if err != nil {
		return err
	}

	privacy := entities.Privacy(cmd.Privacy)
	switch privacy {
	case entities.PrivacyPublic, entities.PrivacyUnlisted, entities.PrivacyFollowers, entities.PrivacyPrivate:
	default:
		return fmt.Errorf("invalid privacy level: %s", cmd.Privacy)
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := db.GetUserByUsername(cmd.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = db.CreateUser(cmd.Username, "")
	}
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", cmd.Username, err)
	}

	cfg := config.NewConfig()
	importRepo := imports.NewRepository(db.DB)
	service := services.NewImportService(
		importRepo,
		books.NewRepository(db.DB),
		shelves.NewRepository(db.DB),
		reviews.NewRepository(db.DB),
		catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.UserAgent, cfg.Catalog.RateInterval),
		nil, // no async dispatch, items are processed inline below
		broadcast.Noop{},
	)

	file, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cmd.FilePath, err)
	}
	defer file.Close()

	job, err := service.CreateJob(user, importer, file, cmd.IncludeReviews, privacy)
	if err != nil {
		return err
	}

	items, err := importRepo.ItemsForJob(job.ID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, item := range items {
		if err := service.ProcessItem(ctx, item.ID); err != nil {
			return err
		}
		if cmd.Verbose {
			fmt.Printf("processed item %d/%d\n", item.Index+1, len(items))
		}
	}

	failed, err := importRepo.FailedItems(job.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Import finished: %d rows, %d failed\n", len(items), len(failed))
	for _, item := range failed {
		fmt.Printf("  row %d (%s): %s\n", item.Index, item.Title(), item.FailReason)
	}

	return nil
}

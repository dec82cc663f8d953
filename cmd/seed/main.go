package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"treemark/internal/config"
	models "treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
	bookmarkSvc "treemark/internal/domain/services/bookmarks"
	"treemark/internal/repository"
	serviceBookmarks "treemark/internal/service/bookmarks"

	"github.com/joho/godotenv"
)

func main() {
	file := flag.String("file", "cmd/seed/seed.yaml", "YAML tree to insert")
	user := flag.String("user", "", "owner id (defaults to DEV_USER_ID)")
	clearData := flag.Bool("clear", false, "Delete the owner's bookmarks before seeding")
	checkOnly := flag.Bool("check", false, "Only report consistency, don't seed")
	repair := flag.Bool("repair", false, "Repair consistency issues, don't seed")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Environment == "prod" && *clearData {
		log.Fatalf("BLOCKED: cannot run -clear in production environment")
	}

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	owner := *user
	if owner == "" {
		owner = cfg.DevUserID
	}

	ctx := context.Background()
	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	treeService := serviceBookmarks.NewTreeService(store.Bookmarks, store.TxManager, nil, logger)
	bookmarkService := serviceBookmarks.NewBookmarkService(store.Bookmarks, store.TxManager, nil, logger)

	switch {
	case *checkOnly:
		report, err := treeService.Check(ctx, owner)
		if err != nil {
			log.Fatalf("Failed to check consistency: %v", err)
		}
		printReport(report)
		return
	case *repair:
		report, err := treeService.Repair(ctx, owner)
		if err != nil {
			log.Fatalf("Failed to repair: %v", err)
		}
		printReport(report)
		return
	}

	if *clearData {
		removed, err := clearOwner(ctx, store.Bookmarks, owner)
		if err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Printf("Cleared %d bookmarks for %s", removed, owner)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open seed file: %v", err)
	}
	defer f.Close()

	nodes, err := models.DecodeSeed(f)
	if err != nil {
		log.Fatalf("Invalid seed file: %v", err)
	}

	log.Printf("Seeding %s (store: %s, owner: %s)", *file, store.Driver, owner)
	created, err := seedTree(ctx, bookmarkService, owner, nil, nodes)
	if err != nil {
		log.Fatalf("Seeding stopped after %d bookmarks: %v", created, err)
	}
	log.Printf("Created %d bookmarks", created)

	report, err := treeService.Check(ctx, owner)
	if err != nil {
		log.Fatalf("Failed to check consistency: %v", err)
	}
	printReport(report)
}

// seedTree inserts nodes depth-first through the service so every parent's
// children array is maintained. Ids in the file are ignored; the store
// assigns new ones.
func seedTree(ctx context.Context, svc bookmarkSvc.BookmarkService, owner string, parentID *string, nodes []models.SeedNode) (int, error) {
	created := 0
	for _, n := range nodes {
		b, err := svc.CreateBookmark(ctx, &bookmarkSvc.CreateBookmarkRequest{
			UserID:   owner,
			Title:    n.Title,
			URL:      n.URL,
			IsFolder: n.IsFolder(),
			ParentID: parentID,
		})
		if err != nil {
			return created, fmt.Errorf("create %q: %w", n.Title, err)
		}
		created++

		if len(n.Children) > 0 {
			c, err := seedTree(ctx, svc, owner, &b.ID, n.Children)
			created += c
			if err != nil {
				return created, err
			}
		}
	}
	return created, nil
}

// clearOwner deletes every record of owner, orphans included.
func clearOwner(ctx context.Context, repo repositories.BookmarkRepository, owner string) (int64, error) {
	records, err := repo.ListAll(ctx, owner)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return repo.DeleteMany(ctx, ids, owner)
}

func printReport(report *models.Report) {
	log.Printf("Checked %d bookmarks: %d issues, %d repaired", report.Checked, len(report.Issues), report.Repaired)
	for _, issue := range report.Issues {
		log.Printf("  %s: %s", issue.Kind, issue.Message)
	}
}

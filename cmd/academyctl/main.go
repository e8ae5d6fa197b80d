// Command academyctl administers an academy database: seeding users and the
// course catalog, importing question banks and tailing the event log.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/config"
	"github.com/mind-engage/mindengage-academy/internal/db"
	"github.com/mind-engage/mindengage-academy/internal/importer"
	"github.com/mind-engage/mindengage-academy/internal/logger"
	syncx "github.com/mind-engage/mindengage-academy/internal/sync"
)

const usage = `usage: academyctl <command> [flags]

commands:
  user     create or update a user
  catalog  load courses, modules and lessons from a JSON file
  import   import a question bank into a module
  events   print the event log as JSON lines
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode, cfg.LogLevel, cfg.LogRedaction)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", "driver", cfg.DBDriver, "error", err)
	}
	defer dbh.Close()
	store := academy.NewSQLStore(dbh, cfg.DBDriver)

	args := os.Args[2:]
	switch os.Args[1] {
	case "user":
		err = cmdUser(ctx, store, args)
	case "catalog":
		err = cmdCatalog(ctx, store, args)
	case "import":
		err = cmdImport(ctx, store, args)
	case "events":
		err = cmdEvents(ctx, syncx.NewEventRepo(dbh, cfg.SiteID), args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func cmdUser(ctx context.Context, store *academy.SQLStore, args []string) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	id := fs.String("id", "", "user id (defaults to the username)")
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password; empty keeps the account login-less")
	role := fs.String("role", academy.RoleLearner, "learner, manager or admin")
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "full name")
	groups := fs.String("groups", "", "comma separated group ids")
	inactive := fs.Bool("inactive", false, "create the account disabled")
	_ = fs.Parse(args)

	if *username == "" {
		return fmt.Errorf("-username is required")
	}
	switch *role {
	case academy.RoleLearner, academy.RoleManager, academy.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", *role)
	}
	u := academy.User{
		ID:       *id,
		Username: *username,
		FullName: *name,
		Email:    *email,
		Role:     *role,
		IsActive: !*inactive,
	}
	if u.ID == "" {
		u.ID = u.Username
	}
	for _, g := range strings.Split(*groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			u.GroupIDs = append(u.GroupIDs, g)
		}
	}
	if *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u.PasswordHash = string(hash)
	}
	if err := store.PutUser(ctx, u); err != nil {
		return err
	}
	fmt.Printf("user %s (%s) saved\n", u.Username, u.Role)
	return nil
}

func cmdCatalog(ctx context.Context, store academy.Store, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	file := fs.String("file", "", "catalog JSON file")
	_ = fs.Parse(args)

	raw, err := readInput(*file)
	if err != nil {
		return err
	}
	res, err := importer.New(store).LoadCatalog(ctx, raw)
	if err != nil {
		return err
	}
	fmt.Printf("%d courses, %d modules, %d lessons loaded\n", res.Courses, res.Modules, res.Lessons)
	return nil
}

func cmdImport(ctx context.Context, store academy.Store, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	moduleID := fs.Int64("module", 0, "target module id")
	file := fs.String("file", "", "question JSON file")
	deleteExisting := fs.Bool("delete", false, "delete the module's questions first")
	_ = fs.Parse(args)

	if *moduleID <= 0 {
		return fmt.Errorf("-module is required")
	}
	raw, err := readInput(*file)
	if err != nil {
		return err
	}
	res, err := importer.New(store).Import(ctx, *moduleID, *deleteExisting, raw)
	if err != nil {
		return err
	}
	fmt.Printf("%d questions, %d choices imported, %d skipped\n", res.Questions, res.Choices, res.Skipped)
	return nil
}

func cmdEvents(ctx context.Context, events *syncx.EventRepo, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	after := fs.Int64("after", 0, "print events after this offset")
	limit := fs.Int("limit", 100, "page size")
	follow := fs.Bool("follow", false, "keep polling for new events")
	_ = fs.Parse(args)

	enc := json.NewEncoder(os.Stdout)
	for {
		page, err := events.Since(ctx, *after, *limit)
		if err != nil {
			return err
		}
		for _, e := range page {
			if err := enc.Encode(e); err != nil {
				return err
			}
			*after = e.Offset
		}
		if len(page) == *limit {
			continue
		}
		if !*follow {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

// readInput reads path, or stdin for "" and "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

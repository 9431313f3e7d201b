package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/artesarh/rpb/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

const (
	filePrefix      = "backup_"
	timestampLayout = "20060102_150405"
)

var ErrUnsupportedDialect = errors.New("backups are not supported for this database")

var backupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reporting_backups_total",
	Help: "Database backups by outcome.",
}, []string{"status"})

type Config struct {
	Dir  string
	Keep int
	// DatabaseUri is handed to pg_dump for postgres databases.
	DatabaseUri string
}

type Backuper struct {
	db     *gorm.DB
	config Config
	now    func() time.Time
}

func New(db *gorm.DB, config Config) *Backuper {
	if config.Keep <= 0 {
		config.Keep = 20
	}
	return &Backuper{db: db, config: config, now: time.Now}
}

func (b *Backuper) path(ext string) string {
	return filepath.Join(b.config.Dir, filePrefix+b.now().Format(timestampLayout)+ext)
}

// Backup writes a consistent copy of the database into the backup dir and
// prunes old copies. It returns the path of the new backup.
func (b *Backuper) Backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.config.Dir, 0777); err != nil {
		backupsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("error creating backup dir %v: %w", b.config.Dir, err)
	}

	var (
		path string
		err  error
	)
	switch dialect := b.db.Dialector.Name(); dialect {
	case "sqlite":
		path = b.path(".sqlite")
		err = b.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error
	case "postgres":
		path = b.path(".sql")
		err = b.pgDump(ctx, path)
	default:
		err = fmt.Errorf("%w: %v", ErrUnsupportedDialect, dialect)
	}
	if err != nil {
		backupsTotal.WithLabelValues("failed").Inc()
		slog.Error("database backup failed", "path", path, "error", err, "code", logging.BACKUP)
		return "", fmt.Errorf("error backing up database: %w", err)
	}

	backupsTotal.WithLabelValues("created").Inc()
	slog.Info("database backup created", "path", path, "code", logging.BACKUP)

	if err := b.prune(); err != nil {
		slog.Error("error pruning old backups", "dir", b.config.Dir, "error", err, "code", logging.BACKUP)
	}

	return path, nil
}

func (b *Backuper) pgDump(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "pg_dump", "--no-owner", "--file", path, b.config.DatabaseUri)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_dump failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// List returns the backup files in the backup dir, newest first.
func (b *Backuper) List() ([]string, error) {
	entries, err := os.ReadDir(b.config.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error listing backups: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), filePrefix) {
			files = append(files, filepath.Join(b.config.Dir, entry.Name()))
		}
	}
	// timestamps sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

func (b *Backuper) prune() error {
	files, err := b.List()
	if err != nil {
		return err
	}
	if len(files) <= b.config.Keep {
		return nil
	}

	var errs []error
	for _, file := range files[b.config.Keep:] {
		if err := os.Remove(file); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("removed old backup", "path", file, "code", logging.BACKUP)
	}
	return errors.Join(errs...)
}

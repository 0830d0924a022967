// Package sqlstore implements metadata.FileStore and metadata.DirectoryStore
// over GORM, grounded on the teacher's pkg/controlplane/store.GORMStore: the
// same sqlite-or-postgres dialector selection by DSN prefix, the same
// AutoMigrate-on-open convenience, and the same translation of
// gorm.ErrRecordNotFound into the package's own not-found sentinels.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cloudvault/vaultd/internal/store/metadata/sqlstore/migrations"

	"github.com/cloudvault/vaultd/internal/store/metadata"
)

// fileRow is the GORM model backing metadata.FileMetadata.
type fileRow struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"index"`
	Name           string
	ContentType    string
	DeclaredSize   int64
	DirectoryID    string `gorm:"index"`
	Path           string
	TotalChunks    int
	ChunksReceived int
	IsComplete     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// directoryRow is the GORM model backing metadata.Directory.
type directoryRow struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"index"`
	Name      string
	ParentID  string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store implements both metadata.FileStore and metadata.DirectoryStore
// against a single GORM connection.
type Store struct {
	db *gorm.DB
}

// Open connects using dsn, dispatching to the sqlite or postgres driver by
// its scheme ("sqlite://" or "postgres://"/"postgresql://"; a bare path is
// treated as a sqlite file path).
//
// The sqlite path runs GORM's AutoMigrate, same as the teacher. The postgres
// path instead applies the versioned migrations embedded in ./migrations via
// golang-migrate, grounded on the teacher's pkg/store/metadata/postgres/migrate.go.
// The initial connection attempt is retried with backoff, since postgres
// often isn't ready the instant vaultd starts in a compose/k8s environment.
func Open(dsn string) (*Store, error) {
	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	var dialector gorm.Dialector
	switch {
	case isPostgres:
		dialector = postgres.Open(dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		dialector = sqliteDialector(path)
	default:
		dialector = sqliteDialector(dsn)
	}

	db, err := connectWithRetry(dialector)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}

	if isPostgres {
		if err := runPostgresMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sqlstore: migrate: %w", err)
		}
	} else {
		if err := db.AutoMigrate(&fileRow{}, &directoryRow{}); err != nil {
			return nil, fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// connectWithRetry opens db with an exponential backoff retry, since the
// database may still be starting up when vaultd does (e.g. docker-compose
// bringing up postgres and vaultd together).
func connectWithRetry(dialector gorm.Dialector) (*gorm.DB, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	bo.InitialInterval = 200 * time.Millisecond

	var db *gorm.DB
	err := backoff.Retry(func() error {
		opened, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return err
		}
		db = opened
		return nil
	}, bo)
	return db, err
}

// runPostgresMigrations applies the embedded schema via golang-migrate,
// using pgx's database/sql driver rather than GORM's connection.
func runPostgresMigrations(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		return fmt.Errorf("build migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("build migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func sqliteDialector(path string) gorm.Dialector {
	if path != "" && path != ":memory:" {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
	}
	return sqlite.Open(path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

func toFileMetadata(r fileRow) metadata.FileMetadata {
	return metadata.FileMetadata{
		ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, ContentType: r.ContentType,
		DeclaredSize: r.DeclaredSize, DirectoryID: r.DirectoryID, Path: r.Path,
		TotalChunks: r.TotalChunks, ChunksReceived: r.ChunksReceived, IsComplete: r.IsComplete,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func fromFileMetadata(f metadata.FileMetadata) fileRow {
	return fileRow{
		ID: f.ID, OwnerID: f.OwnerID, Name: f.Name, ContentType: f.ContentType,
		DeclaredSize: f.DeclaredSize, DirectoryID: f.DirectoryID, Path: f.Path,
		TotalChunks: f.TotalChunks, ChunksReceived: f.ChunksReceived, IsComplete: f.IsComplete,
		CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt,
	}
}

func toDirectory(r directoryRow) metadata.Directory {
	return metadata.Directory{
		ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, ParentID: r.ParentID,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// --- FileStore ---

func (s *Store) GetByID(ctx context.Context, id string) (metadata.FileMetadata, error) {
	var r fileRow
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return metadata.FileMetadata{}, metadata.ErrNotFound
		}
		return metadata.FileMetadata{}, err
	}
	return toFileMetadata(r), nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]metadata.FileMetadata, error) {
	var rows []fileRow
	if err := s.db.WithContext(ctx).Where("owner_id = ? AND is_complete = ?", ownerID, true).Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapFileRows(rows), nil
}

func (s *Store) ListByDirectory(ctx context.Context, ownerID, directoryID string) ([]metadata.FileMetadata, error) {
	var rows []fileRow
	if err := s.db.WithContext(ctx).
		Where("owner_id = ? AND directory_id = ? AND is_complete = ?", ownerID, directoryID, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapFileRows(rows), nil
}

// ListAll returns every file record, for the janitor sweep (§9 decision 4).
func (s *Store) ListAll(ctx context.Context) ([]metadata.FileMetadata, error) {
	var rows []fileRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapFileRows(rows), nil
}

func mapFileRows(rows []fileRow) []metadata.FileMetadata {
	out := make([]metadata.FileMetadata, 0, len(rows))
	for _, r := range rows {
		out = append(out, toFileMetadata(r))
	}
	return out
}

func (s *Store) Add(ctx context.Context, f metadata.FileMetadata) (metadata.FileMetadata, error) {
	if f.IsComplete {
		var count int64
		s.db.WithContext(ctx).Model(&fileRow{}).
			Where("owner_id = ? AND directory_id = ? AND name = ? AND is_complete = ? AND id <> ?", f.OwnerID, f.DirectoryID, f.Name, true, f.ID).
			Count(&count)
		if count > 0 {
			return metadata.FileMetadata{}, metadata.ErrDuplicateName
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	row := fromFileMetadata(f)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return metadata.FileMetadata{}, fmt.Errorf("sqlstore: add file: %w", err)
	}
	return toFileMetadata(row), nil
}

func (s *Store) Update(ctx context.Context, f metadata.FileMetadata) error {
	existing, err := s.GetByID(ctx, f.ID)
	if err != nil {
		return err
	}
	if existing.OwnerID != f.OwnerID {
		return metadata.ErrForbidden
	}
	if f.IsComplete {
		var count int64
		s.db.WithContext(ctx).Model(&fileRow{}).
			Where("owner_id = ? AND directory_id = ? AND name = ? AND is_complete = ? AND id <> ?", f.OwnerID, f.DirectoryID, f.Name, true, f.ID).
			Count(&count)
		if count > 0 {
			return metadata.ErrDuplicateName
		}
	}
	f.UpdatedAt = time.Now().UTC()
	row := fromFileMetadata(f)
	return s.db.WithContext(ctx).Model(&fileRow{}).Where("id = ?", f.ID).Updates(&row).Error
}

func (s *Store) Delete(ctx context.Context, id, ownerID string) error {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.OwnerID != ownerID {
		return metadata.ErrForbidden
	}
	return s.db.WithContext(ctx).Delete(&fileRow{}, "id = ?", id).Error
}

func (s *Store) MoveFiles(ctx context.Context, ids []string, newDirectoryID, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&fileRow{}).Where("id IN ? AND owner_id = ?", ids, ownerID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(ids) {
			return metadata.ErrNotFound
		}
		if newDirectoryID != "" {
			var dirCount int64
			if err := tx.Model(&directoryRow{}).Where("id = ? AND owner_id = ?", newDirectoryID, ownerID).Count(&dirCount).Error; err != nil {
				return err
			}
			if dirCount == 0 {
				return metadata.ErrDirectoryNotFound
			}
		}
		return tx.Model(&fileRow{}).Where("id IN ?", ids).Update("directory_id", newDirectoryID).Error
	})
}

// --- DirectoryStore ---

func (s *Store) Create(ctx context.Context, ownerID, name, parentID string) (metadata.Directory, error) {
	if parentID != "" {
		if _, err := s.dirByID(ctx, parentID); err != nil {
			return metadata.Directory{}, err
		}
	}
	if err := s.checkSiblingUnique(ctx, ownerID, parentID, name, ""); err != nil {
		return metadata.Directory{}, err
	}
	now := time.Now().UTC()
	row := directoryRow{ID: newID(), OwnerID: ownerID, Name: name, ParentID: parentID, CreatedAt: now, UpdatedAt: now}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return metadata.Directory{}, fmt.Errorf("sqlstore: create directory: %w", err)
	}
	return toDirectory(row), nil
}

func (s *Store) Rename(ctx context.Context, id, ownerID, newName string) error {
	d, err := s.dirByID(ctx, id)
	if err != nil {
		return err
	}
	if d.OwnerID != ownerID {
		return metadata.ErrDirectoryForbidden
	}
	if err := s.checkSiblingUnique(ctx, ownerID, d.ParentID, newName, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&directoryRow{}).Where("id = ?", id).
		Updates(map[string]any{"name": newName, "updated_at": time.Now().UTC()}).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (metadata.Directory, error) {
	return s.dirByID(ctx, id)
}

func (s *Store) dirByID(ctx context.Context, id string) (metadata.Directory, error) {
	var row directoryRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return metadata.Directory{}, metadata.ErrDirectoryNotFound
		}
		return metadata.Directory{}, err
	}
	return toDirectory(row), nil
}

func (s *Store) checkSiblingUnique(ctx context.Context, ownerID, parentID, name, excludeID string) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&directoryRow{}).Where("owner_id = ? AND parent_id = ? AND name = ?", ownerID, parentID, name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return metadata.ErrSiblingExists
	}
	return nil
}

func (s *Store) GetContents(ctx context.Context, ownerID, dirID string) ([]metadata.FileMetadata, []metadata.Directory, error) {
	if dirID != "" {
		d, err := s.dirByID(ctx, dirID)
		if err != nil {
			return nil, nil, err
		}
		if d.OwnerID != ownerID {
			return nil, nil, metadata.ErrDirectoryForbidden
		}
	}
	files, err := s.ListByDirectory(ctx, ownerID, dirID)
	if err != nil {
		return nil, nil, err
	}
	var dirRows []directoryRow
	if err := s.db.WithContext(ctx).Where("owner_id = ? AND parent_id = ?", ownerID, dirID).Find(&dirRows).Error; err != nil {
		return nil, nil, err
	}
	dirs := make([]metadata.Directory, 0, len(dirRows))
	for _, r := range dirRows {
		dirs = append(dirs, toDirectory(r))
	}
	return files, dirs, nil
}

// Delete mirrors memstore's post-order recursive walk, each step in its
// own transaction so a partial failure leaves already-deleted descendants
// gone and reports the directory it stopped at.
func (s *Store) Delete(ctx context.Context, id, ownerID string, recursive bool) (string, error) {
	d, err := s.dirByID(ctx, id)
	if err != nil {
		return id, err
	}
	if d.OwnerID != ownerID {
		return id, metadata.ErrDirectoryForbidden
	}

	var fileCount, dirCount int64
	s.db.WithContext(ctx).Model(&fileRow{}).Where("owner_id = ? AND directory_id = ?", ownerID, id).Count(&fileCount)
	s.db.WithContext(ctx).Model(&directoryRow{}).Where("owner_id = ? AND parent_id = ?", ownerID, id).Count(&dirCount)

	if !recursive {
		if fileCount > 0 || dirCount > 0 {
			return id, metadata.ErrDirectoryNotEmpty
		}
		return "", s.db.WithContext(ctx).Delete(&directoryRow{}, "id = ?", id).Error
	}

	var subdirs []directoryRow
	s.db.WithContext(ctx).Where("owner_id = ? AND parent_id = ?", ownerID, id).Find(&subdirs)
	for _, sub := range subdirs {
		if failed, err := s.Delete(ctx, sub.ID, ownerID, true); err != nil {
			return failed, err
		}
	}
	if err := s.db.WithContext(ctx).Delete(&fileRow{}, "owner_id = ? AND directory_id = ?", ownerID, id).Error; err != nil {
		return id, err
	}
	if err := s.db.WithContext(ctx).Delete(&directoryRow{}, "id = ?", id).Error; err != nil {
		return id, err
	}
	return "", nil
}

func newID() string {
	return uuid.NewString()
}

// Package watch mirrors every collection to a JSON file and feeds external
// edits of those files back through mutation intake.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	stdsync "sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/iudanet/daybook/internal/crdt"
	"github.com/iudanet/daybook/internal/models"
)

// DefaultDebounce - пауза после последнего события файла перед импортом
const DefaultDebounce = 200 * time.Millisecond

// Intake - прием локальных правок
type Intake interface {
	List(ctx context.Context, collection string) ([]models.Record, error)
	NotifyLocalChange(ctx context.Context, collection string, before, after []models.Record) (crdt.Change, error)
}

// ErrUnimportedEdits - файл коллекции изменен снаружи, но правку не удалось принять;
// файл не перезаписывается, пока он не станет корректным
var ErrUnimportedEdits = errors.New("mirror file has edits that could not be imported")

// exportAttempts ограничивает повторы, если файл меняется прямо во время экспорта
const exportAttempts = 3

// Mirror держит <dir>/<collection>.json в соответствии с локальной коллекцией.
// Импорт и экспорт одной коллекции выполняются по очереди.
type Mirror struct {
	intake   Intake
	logger   *slog.Logger
	hashes   map[string][sha256.Size]byte
	bases    map[string][]models.Record // содержимое файла на момент последней записи или импорта
	timers   map[string]*time.Timer
	locks    map[string]*stdsync.Mutex
	dir      string
	wg       stdsync.WaitGroup
	debounce time.Duration
	mu       stdsync.Mutex
}

// New creates a mirror rooted at dir; the directory is created if missing
func New(dir string, intake Intake, logger *slog.Logger) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &Mirror{
		dir:      dir,
		intake:   intake,
		logger:   logger,
		debounce: DefaultDebounce,
		hashes:   make(map[string][sha256.Size]byte),
		bases:    make(map[string][]models.Record),
		timers:   make(map[string]*time.Timer),
		locks:    make(map[string]*stdsync.Mutex),
	}, nil
}

// Path returns the mirror file of a collection
func (m *Mirror) Path(collection string) string {
	return filepath.Join(m.dir, collection+".json")
}

func (m *Mirror) lock(collection string) *stdsync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[collection]
	if !ok {
		l = &stdsync.Mutex{}
		m.locks[collection] = l
	}
	return l
}

// Export записывает коллекцию в файл (temp + rename).
// Если файл изменен снаружи после прошлого экспорта, правка сначала
// принимается через intake, а в файл пишется коллекция уже с ней.
func (m *Mirror) Export(ctx context.Context, collection string, records []models.Record) error {
	l := m.lock(collection)
	l.Lock()
	defer l.Unlock()
	return m.exportLocked(ctx, collection, records)
}

// Refresh асинхронно выгружает текущее состояние коллекции из intake.
// Подходит для хука правок: хук может сработать внутри импорта этой же коллекции.
func (m *Mirror) Refresh(ctx context.Context, collection string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if ctx.Err() != nil {
			return
		}
		l := m.lock(collection)
		l.Lock()
		defer l.Unlock()

		records, err := m.intake.List(ctx, collection)
		if err == nil {
			err = m.exportLocked(ctx, collection, records)
		}
		if err != nil {
			m.logger.Warn("failed to refresh mirror file", "collection", collection, "error", err)
		}
	}()
}

func (m *Mirror) exportLocked(ctx context.Context, collection string, records []models.Record) error {
	for range exportAttempts {
		imported, err := m.importLocked(ctx, collection, false)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUnimportedEdits, m.Path(collection), err)
		}
		if imported {
			// записи вызывающего устарели: в хранилище уже есть внешняя правка
			if records, err = m.intake.List(ctx, collection); err != nil {
				return fmt.Errorf("failed to list %s: %w", collection, err)
			}
		}

		replaced, err := m.write(collection, records)
		if err != nil {
			return err
		}
		if replaced {
			return nil
		}
	}
	return fmt.Errorf("%s keeps changing, export postponed", m.Path(collection))
}

// write заменяет файл, только если на диске лежит то, что мы уже видели.
// Возвращает false, если файл успели изменить снаружи.
func (m *Mirror) write(collection string, records []models.Record) (bool, error) {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	models.SortRecords(sorted)

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", collection, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(m.dir, "."+collection+".json.tmp-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}

	if changed, err := m.changedOnDisk(collection); err != nil || changed {
		return false, err
	}

	// хеш запоминается до rename, чтобы событие собственной записи было подавлено
	m.mu.Lock()
	m.hashes[collection] = sha256.Sum256(data)
	m.bases[collection] = sorted
	m.mu.Unlock()

	if err := os.Rename(tmp.Name(), m.Path(collection)); err != nil {
		return false, fmt.Errorf("failed to replace %s: %w", m.Path(collection), err)
	}
	return true, nil
}

// changedOnDisk сообщает, отличается ли файл от последнего экспорта или импорта.
// Файл, которого мы еще не видели (остался от прошлого запуска), правкой не считается.
func (m *Mirror) changedOnDisk(collection string) (bool, error) {
	data, err := os.ReadFile(m.Path(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read mirror file: %w", err)
	}
	m.mu.Lock()
	last, seen := m.hashes[collection]
	m.mu.Unlock()
	return seen && last != sha256.Sum256(data), nil
}

// ExportAll writes every collection from the local store
func (m *Mirror) ExportAll(ctx context.Context) error {
	for _, coll := range models.Collections {
		records, err := m.intake.List(ctx, coll)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", coll, err)
		}
		if err := m.Export(ctx, coll, records); err != nil {
			return err
		}
	}
	return nil
}

// Run следит за каталогом до отмены ctx
func (m *Mirror) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(m.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.dir, err)
	}
	m.logger.Info("watching collection mirror", "dir", m.dir)

	defer m.wg.Wait()
	defer m.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			coll, ok := m.collectionOf(event)
			if !ok {
				continue
			}
			m.schedule(ctx, coll)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("mirror watcher error", "error", err)
		}
	}
}

// collectionOf отбирает события записи файлов коллекций
func (m *Mirror) collectionOf(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	coll := strings.TrimSuffix(name, ".json")
	return coll, models.KnownCollection(coll)
}

func (m *Mirror) schedule(ctx context.Context, collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[collection]; ok {
		t.Stop()
	}
	m.timers[collection] = time.AfterFunc(m.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := m.Import(ctx, collection); err != nil {
			m.logger.Warn("failed to import mirror file", "collection", collection, "error", err)
		}
	})
}

func (m *Mirror) stopTimers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for coll, t := range m.timers {
		t.Stop()
		delete(m.timers, coll)
	}
}

// Import читает файл коллекции и передает отличия в прием правок.
// Файл, совпадающий с последним экспортом, пропускается.
func (m *Mirror) Import(ctx context.Context, collection string) error {
	l := m.lock(collection)
	l.Lock()
	defer l.Unlock()
	_, err := m.importLocked(ctx, collection, true)
	return err
}

// importLocked принимает внешнюю правку файла. unseen разрешает импорт файла,
// которого зеркало еще не видело; при экспорте такой файл считается устаревшим.
func (m *Mirror) importLocked(ctx context.Context, collection string, unseen bool) (bool, error) {
	data, err := os.ReadFile(m.Path(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read mirror file: %w", err)
	}

	sum := sha256.Sum256(data)
	m.mu.Lock()
	last, seen := m.hashes[collection]
	before := m.bases[collection]
	m.mu.Unlock()
	if seen && last == sum || !seen && !unseen {
		return false, nil
	}

	var after []models.Record
	if err := json.Unmarshal(data, &after); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", m.Path(collection), err)
	}

	// правка сравнивается с тем, что пользователь видел в файле,
	// а не с хранилищем, которое могло уйти вперед после синхронизации
	if !seen {
		if before, err = m.intake.List(ctx, collection); err != nil {
			return false, fmt.Errorf("failed to list %s: %w", collection, err)
		}
	}

	change, err := m.intake.NotifyLocalChange(ctx, collection, before, after)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.hashes[collection] = sum
	m.bases[collection] = after
	m.mu.Unlock()

	m.logger.Info("imported mirror edits",
		"collection", collection,
		"upserts", len(change.Upserts),
		"deletes", len(change.Deletes),
	)
	return true, nil
}

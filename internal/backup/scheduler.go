package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"todo-app/internal/repository"
	"todo-app/internal/storage"
)

// Scheduler periodically exports the account and todo stores to object storage.
type Scheduler interface {
	Start(ctx context.Context) error
	Shutdown()
	RunOnce(ctx context.Context) (string, error)
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	// Retain keeps at most this many snapshots under KeyPrefix; zero keeps all.
	Retain int
	Logger *logrus.Logger
}

// Snapshot is the JSON document written for each backup. Password hashes are never exported.
type Snapshot struct {
	TakenAt  time.Time         `json:"taken_at"`
	Accounts []SnapshotAccount `json:"accounts"`
	Todos    []SnapshotTodo    `json:"todos"`
}

type SnapshotAccount struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type SnapshotTodo struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type scheduler struct {
	cfg      Config
	accounts repository.AccountRepository
	todos    repository.TodoRepository
	storage  storage.Service
	now      func() time.Time

	clockMu   sync.Mutex
	lastTaken time.Time

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(cfg Config, accounts repository.AccountRepository, todos repository.TodoRepository, store storage.Service) Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &scheduler{
		cfg:      cfg,
		accounts: accounts,
		todos:    todos,
		storage:  store,
		now:      time.Now,
	}
}

func (s *scheduler) Start(ctx context.Context) error {
	if s.cfg.Bucket == "" {
		return fmt.Errorf("backup bucket is required")
	}
	if s.cfg.Retain > 0 && s.cfg.KeyPrefix == "" {
		return fmt.Errorf("backup key prefix is required when retain is set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("backup scheduler already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(loopCtx)
	s.cfg.Logger.Infof("backup scheduler started, every %s to s3://%s/%s", s.cfg.Interval, s.cfg.Bucket, s.cfg.KeyPrefix)
	return nil
}

// Shutdown stops the ticker loop and writes one final snapshot.
func (s *scheduler) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()

	ctx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()
	if _, err := s.RunOnce(ctx); err != nil {
		s.cfg.Logger.WithError(err).Warn("final backup failed")
	}
	s.cfg.Logger.Info("backup scheduler stopped")
}

func (s *scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.cfg.Logger.WithError(err).Warn("backup failed, retrying next tick")
			}
		}
	}
}

// RunOnce takes and uploads a snapshot, then prunes old ones. It returns the object location.
func (s *scheduler) RunOnce(ctx context.Context) (string, error) {
	snap, err := s.take(ctx)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := s.objectKey(snap.TakenAt)
	location, err := s.storage.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	s.cfg.Logger.WithFields(logrus.Fields{
		"location": location,
		"accounts": len(snap.Accounts),
		"todos":    len(snap.Todos),
	}).Info("snapshot uploaded")

	if err := s.prune(ctx); err != nil {
		s.cfg.Logger.WithError(err).Warn("prune snapshots")
	}
	return location, nil
}

func (s *scheduler) take(ctx context.Context) (*Snapshot, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	todos, err := s.todos.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	snap := &Snapshot{
		TakenAt:  s.takenAt(),
		Accounts: make([]SnapshotAccount, len(accounts)),
		Todos:    make([]SnapshotTodo, len(todos)),
	}
	for i, a := range accounts {
		snap.Accounts[i] = SnapshotAccount{ID: a.ID, Username: a.Username}
	}
	for i, t := range todos {
		snap.Todos[i] = SnapshotTodo{ID: t.ID, UserID: t.OwnerID, Text: t.Text, Completed: t.Completed}
	}
	return snap, nil
}

// takenAt returns the snapshot time, at least one millisecond after the previous one.
func (s *scheduler) takenAt() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	at := s.now().UTC().Truncate(time.Millisecond)
	if !at.After(s.lastTaken) {
		at = s.lastTaken.Add(time.Millisecond)
	}
	s.lastTaken = at
	return at
}

const snapshotTimeLayout = "20060102T150405.000Z"

func (s *scheduler) objectKey(takenAt time.Time) string {
	name := fmt.Sprintf("%s-%s.json", takenAt.Format(snapshotTimeLayout), uuid.NewString())
	if s.cfg.KeyPrefix == "" {
		return name
	}
	return s.cfg.KeyPrefix + "/" + name
}

// parseSnapshotName reports the time encoded in a key written by objectKey
// directly under prefix. Any other key is rejected.
func parseSnapshotName(key, prefix string) (time.Time, bool) {
	name, ok := strings.CutPrefix(key, prefix)
	if !ok || strings.Contains(name, "/") {
		return time.Time{}, false
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok || len(name) < len(snapshotTimeLayout)+1 || name[len(snapshotTimeLayout)] != '-' {
		return time.Time{}, false
	}
	at, err := time.Parse(snapshotTimeLayout, name[:len(snapshotTimeLayout)])
	if err != nil {
		return time.Time{}, false
	}
	if _, err := uuid.Parse(name[len(snapshotTimeLayout)+1:]); err != nil {
		return time.Time{}, false
	}
	return at, true
}

type snapshotObject struct {
	key     string
	takenAt time.Time
}

// prune deletes all but the newest Retain snapshots. Keys that are not
// snapshot names are never touched.
func (s *scheduler) prune(ctx context.Context) error {
	if s.cfg.Retain <= 0 {
		return nil
	}
	if s.cfg.KeyPrefix == "" {
		return fmt.Errorf("refusing to prune without a key prefix")
	}
	prefix := s.cfg.KeyPrefix + "/"
	objects, err := s.storage.ListObjects(ctx, s.cfg.Bucket, prefix)
	if err != nil {
		return err
	}

	var snapshots []snapshotObject
	for _, obj := range objects {
		if at, ok := parseSnapshotName(obj.Key, prefix); ok {
			snapshots = append(snapshots, snapshotObject{key: obj.Key, takenAt: at})
		}
	}
	if len(snapshots) <= s.cfg.Retain {
		return nil
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].takenAt.Equal(snapshots[j].takenAt) {
			return snapshots[i].takenAt.Before(snapshots[j].takenAt)
		}
		return snapshots[i].key < snapshots[j].key
	})
	stale := snapshots[:len(snapshots)-s.cfg.Retain]
	keys := make([]string, len(stale))
	for i, snap := range stale {
		keys[i] = snap.key
	}
	if err := s.storage.DeleteObjects(ctx, s.cfg.Bucket, keys); err != nil {
		return fmt.Errorf("delete %d old snapshots: %w", len(keys), err)
	}
	return nil
}

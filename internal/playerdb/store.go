// store.go

package playerdb

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// 磁盘记录格式: 名字(30字节, NUL填充) + 胜/负/平 (各4字节大端序)
const (
	NameFieldSize = 30
	RecordSize    = NameFieldSize + 3*4
)

// ErrStoreUnavailable 无法打开数据文件进行读写
var ErrStoreUnavailable = errors.New("玩家数据文件不可用")

// Mirror 保存成功后接收数据文件的副本（例如上传到对象存储）
type Mirror interface {
	Mirror(ctx context.Context, path string) error
}

// Store 玩家战绩存储，以名字为键
type Store struct {
	path       string
	backupPath string

	mu      sync.RWMutex
	players map[string]*models.PlayerRecord
	loaded  bool

	// 保证同一时间只有一次保存
	saveMu  sync.Mutex
	mirrors []Mirror
}

// New 创建存储，首次访问时才加载数据文件
func New(path, backupPath string) *Store {
	return &Store{
		path:       path,
		backupPath: backupPath,
		players:    make(map[string]*models.PlayerRecord),
	}
}

// Open 创建存储并立即加载；数据文件无法读写时返回 ErrStoreUnavailable
func Open(path, backupPath string) (*Store, error) {
	s := New(path, backupPath)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddMirror 注册保存后的副本接收者
func (s *Store) AddMirror(m Mirror) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mirrors = append(s.mirrors, m)
}

// Path 数据文件路径
func (s *Store) Path() string {
	return s.path
}

// Load 从数据文件加载全部记录；文件不存在时创建空文件
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.players = make(map[string]*models.PlayerRecord, len(records))
	for i := range records {
		rec := records[i]
		s.players[rec.Name] = &rec
	}
	s.loaded = true

	logger.Store.Info("已从 %s 加载 %d 条玩家记录", s.path, len(records))
	return nil
}

// ensureLoaded 首次访问时加载；调用方持有写锁
func (s *Store) ensureLoaded() {
	if s.loaded {
		return
	}
	if err := s.loadLocked(); err != nil {
		logger.Store.Error("加载玩家数据失败: %v", err)
		// 仍标记为已加载，避免每次访问都重试
		s.loaded = true
	}
}

// FindByName 按名字查找玩家记录
func (s *Store) FindByName(name string) (models.PlayerRecord, bool) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		p, ok := s.players[name]
		if !ok {
			return models.PlayerRecord{}, false
		}
		return *p, true
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	p, ok := s.players[name]
	if !ok {
		return models.PlayerRecord{}, false
	}
	return *p, true
}

// CreateOrGet 返回已有记录，不存在时创建战绩为零的新记录
func (s *Store) CreateOrGet(name string) models.PlayerRecord {
	name = truncateName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	if p, ok := s.players[name]; ok {
		return *p
	}
	p := &models.PlayerRecord{Name: name}
	s.players[name] = p
	logger.Store.Info("创建玩家记录: %s", name)
	return *p
}

// RecordWin 胜场加一，返回更新后的记录
func (s *Store) RecordWin(name string) models.PlayerRecord {
	return s.update(name, func(p *models.PlayerRecord) { p.GamesWon++ })
}

// RecordLoss 负场加一，返回更新后的记录
func (s *Store) RecordLoss(name string) models.PlayerRecord {
	return s.update(name, func(p *models.PlayerRecord) { p.GamesLost++ })
}

// RecordTie 平局加一，返回更新后的记录
func (s *Store) RecordTie(name string) models.PlayerRecord {
	return s.update(name, func(p *models.PlayerRecord) { p.GamesTied++ })
}

func (s *Store) update(name string, fn func(p *models.PlayerRecord)) models.PlayerRecord {
	name = truncateName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	p, ok := s.players[name]
	if !ok {
		p = &models.PlayerRecord{Name: name}
		s.players[name] = p
	}
	fn(p)
	return *p
}

// All 返回全部记录的副本，按名字排序
func (s *Store) All() []models.PlayerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return s.snapshotLocked()
}

// Len 记录数量
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return len(s.players)
}

func (s *Store) snapshotLocked() []models.PlayerRecord {
	out := make([]models.PlayerRecord, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save 先把当前数据文件复制为备份，再写入临时文件并重命名为数据文件
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.ensureLoaded()
	records := s.snapshotLocked()
	s.mu.Unlock()

	start := time.Now()
	if s.backupPath != "" {
		if err := copyFile(s.path, s.backupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Store.Warn("备份玩家数据失败: %v", err)
		}
	}

	if err := writeAtomic(s.path, records); err != nil {
		return fmt.Errorf("保存玩家数据失败: %w", err)
	}
	logger.Store.Info("已保存 %d 条玩家记录到 %s，耗时 %v", len(records), s.path, time.Since(start))

	for _, m := range s.mirrors {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.Mirror(ctx, s.path); err != nil {
			logger.Store.Warn("同步玩家数据副本失败: %v", err)
		}
		cancel()
	}
	return nil
}

// ReadRecords 读取磁盘格式的全部记录，末尾不完整的记录被忽略
func ReadRecords(r io.Reader) ([]models.PlayerRecord, error) {
	br := bufio.NewReader(r)
	var records []models.PlayerRecord
	buf := make([]byte, RecordSize)
	for {
		n, err := io.ReadFull(br, buf)
		if err == io.EOF {
			return records, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			logger.Store.Warn("数据文件末尾有 %d 字节不完整的记录，已忽略", n)
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, decodeRecord(buf))
	}
}

// WriteRecords 以磁盘格式写入全部记录
func WriteRecords(w io.Writer, records []models.PlayerRecord) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, RecordSize)
	for _, rec := range records {
		encodeRecord(buf, rec)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func decodeRecord(buf []byte) models.PlayerRecord {
	name := buf[:NameFieldSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return models.PlayerRecord{
		Name:      string(name),
		GamesWon:  binary.BigEndian.Uint32(buf[NameFieldSize:]),
		GamesLost: binary.BigEndian.Uint32(buf[NameFieldSize+4:]),
		GamesTied: binary.BigEndian.Uint32(buf[NameFieldSize+8:]),
	}
}

func encodeRecord(buf []byte, rec models.PlayerRecord) {
	for i := range buf[:NameFieldSize] {
		buf[i] = 0
	}
	copy(buf[:NameFieldSize], truncateName(rec.Name))
	binary.BigEndian.PutUint32(buf[NameFieldSize:], rec.GamesWon)
	binary.BigEndian.PutUint32(buf[NameFieldSize+4:], rec.GamesLost)
	binary.BigEndian.PutUint32(buf[NameFieldSize+8:], rec.GamesTied)
}

func truncateName(name string) string {
	if len(name) > NameFieldSize {
		return name[:NameFieldSize]
	}
	return name
}

// writeAtomic 写入同目录下的临时文件后重命名
func writeAtomic(path string, records []models.PlayerRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := WriteRecords(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

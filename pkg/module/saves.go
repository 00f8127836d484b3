package module

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zurustar/novella/pkg/persist"
)

// SavesName は組み込みセーブモジュールの登録名
const SavesName = "saves"

// savesSlot は組み込みセーブモジュールが使う唯一のスロット
const savesSlot = 1

func init() {
	Register(SavesName, func() Module { return &Saves{} })
}

// Saves は SQLite にセーブデータを 1 件保存する組み込みモジュール
type Saves struct {
	store    *persist.SQLiteStore
	maxSlots int
}

// Init は Settings/DatabaseName、Settings/SavePath、Settings/MaxSlots を読み込みデータベースを開く
func (s *Saves) Init(settings *Settings) error {
	name := settings.String("Settings/DatabaseName", "savegame.db")
	dir := settings.String("Settings/SavePath", "")
	s.maxSlots = settings.Int("Settings/MaxSlots", 10)

	path := name
	if dir != "" {
		path = filepath.Join(dir, name)
	}
	store, err := persist.OpenSQLite(path, persist.Table{Name: "saves", Key: "slot", Value: "data"})
	if err != nil {
		return fmt.Errorf("saves: %w", err)
	}
	s.store = store
	return nil
}

// MaxSlots は設定されたスロット数を返す
func (s *Saves) MaxSlots() int {
	return s.maxSlots
}

func (s *Saves) Save(data string) error {
	if s.store == nil {
		return errors.New("saves: not initialized")
	}
	return s.store.Put(savesSlot, data)
}

func (s *Saves) Load() (string, error) {
	if s.store == nil {
		return "", errors.New("saves: not initialized")
	}
	data, err := s.store.Get(savesSlot)
	if errors.Is(err, persist.ErrSlotEmpty) {
		return "", nil
	}
	return data, err
}

func (s *Saves) Shutdown() {
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
}

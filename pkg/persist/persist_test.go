package persist

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zurustar/novella/pkg/render"
)

type fakeTarget struct {
	doc      Document
	restored []Document
}

func (f *fakeTarget) Snapshot() Document { return f.doc }

func (f *fakeTarget) Restore(d Document) {
	f.doc = d
	f.restored = append(f.restored, d)
}

type fakeProvider struct {
	data string
	err  error
}

func (p *fakeProvider) Save(data string) error {
	if p.err != nil {
		return p.err
	}
	p.data = data
	return nil
}

func (p *fakeProvider) Load() (string, error) { return p.data, p.err }

func sampleDocument() Document {
	return Document{
		Command: 7,
		Images: []render.DisplayImage{
			{Name: "bg", X: 0, Y: 0, W: 1920, H: 1080},
			{Name: "text_100_900_1", X: 100, Y: 900, W: 240, H: 40},
		},
		Variables: map[string]int{"v": 1, "score": -3},
	}
}

func TestDocument_EncodeKeys(t *testing.T) {
	s, err := Document{Command: 2}.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"command":2,"images":[],"variables":{}}`
	if s != want {
		t.Errorf("Encode = %s, want %s", s, want)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Document
		wantErr bool
	}{
		{
			name:  "full document",
			input: `{"command":3,"images":[{"name":"bg","x":1,"y":2,"w":3,"h":4}],"variables":{"a":5}}`,
			want: Document{
				Command:   3,
				Images:    []render.DisplayImage{{Name: "bg", X: 1, Y: 2, W: 3, H: 4}},
				Variables: map[string]int{"a": 5},
			},
		},
		{
			name:  "missing variables",
			input: `{"command":0,"images":[]}`,
			want:  Document{Images: []render.DisplayImage{}, Variables: map[string]int{}},
		},
		{name: "malformed", input: `{"command":`, wantErr: true},
		{name: "negative command", input: `{"command":-1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "save.db"), DefaultTable)
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			return s
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			if _, err := s.Get(1); !errors.Is(err, ErrSlotEmpty) {
				t.Fatalf("Get on empty slot: err = %v, want ErrSlotEmpty", err)
			}
			if err := s.Put(1, "first"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put(1, "second"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put(2, "other"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if got, _ := s.Get(1); got != "second" {
				t.Errorf("slot 1 = %q, want second", got)
			}
			if got, _ := s.Get(2); got != "other" {
				t.Errorf("slot 2 = %q, want other", got)
			}
		})
	}
}

func TestSQLiteStore_CustomTableReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "savegame.db")
	table := Table{Name: "saves", Key: "slot", Value: "data"}

	s, err := OpenSQLite(path, table)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Put(1, "persisted"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	s, err = OpenSQLite(path, table)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got, err := s.Get(1); err != nil || got != "persisted" {
		t.Errorf("Get = %q, %v; want persisted", got, err)
	}
}

func TestProviderStore(t *testing.T) {
	p := &fakeProvider{}
	s := NewProviderStore(p)

	if _, err := s.Get(1); !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("empty provider: err = %v, want ErrSlotEmpty", err)
	}
	s.Put(1, "one")
	s.Put(2, "two")
	if got, _ := s.Get(1); got != "two" {
		t.Errorf("Get = %q, want last save", got)
	}

	p.err = errors.New("disk full")
	if err := s.Put(1, "x"); err == nil {
		t.Error("expected provider error")
	}
}

func TestAdapter_SaveLoad(t *testing.T) {
	target := &fakeTarget{doc: sampleDocument()}
	a := NewAdapter(NewMemoryStore(), target, nil)

	if err := a.Save(1); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := target.doc
	target.doc = Document{Command: 99}

	got, err := a.Load(1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
	if len(target.restored) != 1 || !reflect.DeepEqual(target.doc, want) {
		t.Errorf("target not restored: %+v", target.doc)
	}
}

func TestAdapter_LoadEmptySlot(t *testing.T) {
	target := &fakeTarget{}
	a := NewAdapter(NewMemoryStore(), target, nil)

	if _, err := a.Load(3); !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("err = %v, want ErrSlotEmpty", err)
	}
	if len(target.restored) != 0 {
		t.Error("Restore must not be called for an empty slot")
	}
}

func TestAdapter_LoadCorrupt(t *testing.T) {
	store := NewMemoryStore()
	store.Put(1, "not json")
	target := &fakeTarget{}
	a := NewAdapter(store, target, nil)

	if _, err := a.Load(1); err == nil {
		t.Fatal("expected decode error")
	}
	if len(target.restored) != 0 {
		t.Error("Restore must not be called for a corrupt save")
	}
}

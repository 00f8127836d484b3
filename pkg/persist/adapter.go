package persist

import (
	"fmt"
	"log/slog"
)

// Target exposes the interpreter state to the adapter. Both methods must be
// atomic with respect to the running interpreter.
type Target interface {
	Snapshot() Document
	Restore(Document)
}

// Adapter saves and loads interpreter state through a Store.
type Adapter struct {
	store  Store
	target Target
	log    *slog.Logger
}

// NewAdapter creates an adapter. A nil logger uses slog.Default.
func NewAdapter(store Store, target Target, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{store: store, target: target, log: log}
}

// Save writes the current state to slot.
func (a *Adapter) Save(slot int) error {
	doc := a.target.Snapshot()
	s, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := a.store.Put(slot, s); err != nil {
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	a.log.Info("game saved", "slot", slot, "command", doc.Command, "images", len(doc.Images))
	return nil
}

// Load replaces the running state with the contents of slot. Restored
// resources may not be resident yet; they appear once the loader catches up.
func (a *Adapter) Load(slot int) (Document, error) {
	s, err := a.store.Get(slot)
	if err != nil {
		return Document{}, fmt.Errorf("load slot %d: %w", slot, err)
	}
	doc, err := Decode(s)
	if err != nil {
		return Document{}, fmt.Errorf("load slot %d: %w", slot, err)
	}
	a.target.Restore(doc)
	a.log.Info("game loaded", "slot", slot, "command", doc.Command, "images", len(doc.Images))
	return doc, nil
}

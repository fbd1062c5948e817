package formbuilder

import "sync"

// EventType names a builder mutation.
type EventType string

const (
	EventMetaChanged   EventType = "meta_changed"
	EventEditorOpened  EventType = "editor_opened"
	EventEditorChanged EventType = "editor_changed"
	EventEditorClosed  EventType = "editor_closed"
	EventFieldsChanged EventType = "fields_changed"
	EventLoaded        EventType = "loaded"
	EventCleared       EventType = "cleared"
)

// Event is delivered to subscribers after a mutation has been applied.
type Event struct {
	Type  EventType
	State Snapshot
}

// Snapshot is the complete, serialisable builder state.
type Snapshot struct {
	Meta   Meta           `json:"meta"`
	Fields []Field        `json:"fields"`
	Editor EditorSnapshot `json:"editor"`
}

// Builder couples a Draft with its Editor and notifies listeners of every change.
// It is not safe for concurrent mutation; each editing session owns one Builder.
type Builder struct {
	draft  *Draft
	editor *Editor

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewBuilder returns a builder over an empty draft.
func NewBuilder() *Builder {
	return &Builder{draft: NewDraft(), editor: &Editor{}, subs: make(map[int]func(Event))}
}

// RestoreBuilder rebuilds a builder from a snapshot.
func RestoreBuilder(s Snapshot) *Builder {
	b := NewBuilder()
	b.draft.Load(Form{Meta: s.Meta, Fields: s.Fields})
	b.editor = RestoreEditor(s.Editor)
	return b
}

// Subscribe registers fn for change events and returns its cancel func.
func (b *Builder) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Builder) notify(t EventType) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	if len(fns) == 0 {
		return
	}
	ev := Event{Type: t, State: b.Snapshot()}
	for _, fn := range fns {
		fn(ev)
	}
}

// Draft returns the underlying draft.
func (b *Builder) Draft() *Draft { return b.draft }

// Editor returns the underlying editor.
func (b *Builder) Editor() *Editor { return b.editor }

// Snapshot captures the builder state.
func (b *Builder) Snapshot() Snapshot {
	return Snapshot{
		Meta:   b.draft.Meta(),
		Fields: b.draft.Fields().Fields(),
		Editor: b.editor.Snapshot(),
	}
}

// Load replaces the draft with a persisted form and closes the editor.
func (b *Builder) Load(f Form) {
	b.draft.Load(f)
	b.editor.Close()
	b.notify(EventLoaded)
}

// Clear resets the draft and the editor.
func (b *Builder) Clear() {
	b.draft.Clear()
	b.editor.Close()
	b.notify(EventCleared)
}

// SetMeta updates form metadata.
func (b *Builder) SetMeta(name, description *string, isActive *bool) {
	b.draft.SetMeta(name, description, isActive)
	b.notify(EventMetaChanged)
}

// OpenNew opens the editor for a new field.
func (b *Builder) OpenNew() {
	b.editor.Open(b.draft.Fields(), nil)
	b.notify(EventEditorOpened)
}

// OpenEdit opens the editor on a copy of the field at index i.
func (b *Builder) OpenEdit(i int) error {
	f, err := b.draft.Fields().At(i)
	if err != nil {
		return err
	}
	b.editor.Open(b.draft.Fields(), &f)
	b.notify(EventEditorOpened)
	return nil
}

// EditCandidate mutates the candidate field.
func (b *Builder) EditCandidate(fn func(f *Field)) error {
	if err := b.editor.Edit(fn); err != nil {
		return err
	}
	b.notify(EventEditorChanged)
	return nil
}

// AddOption appends an empty option to the candidate.
func (b *Builder) AddOption() error { return b.editorOp(b.editor.AddOption) }

// RemoveOption removes a candidate option.
func (b *Builder) RemoveOption(i int) error {
	return b.editorOp(func() error { return b.editor.RemoveOption(i) })
}

// AddValidationRule appends a blank rule to the candidate.
func (b *Builder) AddValidationRule() error { return b.editorOp(b.editor.AddValidationRule) }

// RemoveValidationRule removes a candidate rule.
func (b *Builder) RemoveValidationRule(i int) error {
	return b.editorOp(func() error { return b.editor.RemoveValidationRule(i) })
}

func (b *Builder) editorOp(fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	b.notify(EventEditorChanged)
	return nil
}

// Commit merges the candidate into the field list.
func (b *Builder) Commit() error {
	if err := b.editor.Commit(b.draft.Fields()); err != nil {
		return err
	}
	b.notify(EventFieldsChanged)
	return nil
}

// CloseEditor discards the candidate.
func (b *Builder) CloseEditor() {
	b.editor.Close()
	b.notify(EventEditorClosed)
}

// DeleteField removes the committed field at index i.
func (b *Builder) DeleteField(i int) error {
	if err := b.draft.Fields().Delete(i); err != nil {
		return err
	}
	b.notify(EventFieldsChanged)
	return nil
}

// MoveField reorders a committed field.
func (b *Builder) MoveField(from, to int) error {
	if err := b.draft.Fields().Move(from, to); err != nil {
		return err
	}
	b.notify(EventFieldsChanged)
	return nil
}

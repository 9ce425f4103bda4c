package docengine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vellum/internal/domain/models/doc"
	"vellum/internal/domain/repositories"
)

// SaveStatus is the user-visible state of the background persistence cycle.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)

// maxHistory caps the undo stack; the oldest snapshot is dropped beyond it.
const maxHistory = 100

// Editor owns one open document: its current state, undo/redo history and
// the debounced hash/save cycle. All mutating methods take the editor lock,
// so edits apply atomically in invocation order. Snapshots pushed onto the
// history stacks are deep clones and are never mutated afterwards.
type Editor struct {
	mu     sync.Mutex
	state  *doc.DocumentState
	past   []*doc.DocumentState
	future []*doc.DocumentState

	selectedID string

	// version increments on every mutation; hashedVersion and savedVersion
	// record which version the last completed hash/save observed, so a
	// stale in-flight result can never overwrite a fresher one.
	version       uint64
	hashedVersion uint64
	savedVersion  uint64
	saveStatus    SaveStatus

	// saveMu serializes repo.Save calls. The staleness check runs after it
	// is acquired, so a snapshot observed as fresh cannot be overtaken in
	// the backend by a newer save finishing first.
	saveMu sync.Mutex

	debounce         *time.Timer
	debounceInterval time.Duration

	repo    repositories.DocumentRepository
	amounts AmountResolver
	logger  *slog.Logger
}

// AmountResolver lets payment/formula evaluation ask an external
// collaborator for a named numeric value (e.g. a payment-provider amount).
// The second return reports whether the name was resolvable.
type AmountResolver func(name string) (float64, bool)

// NewEditor wraps an existing document state. The state is cloned on entry;
// the caller's copy is not retained.
func NewEditor(state *doc.DocumentState, repo repositories.DocumentRepository, logger *slog.Logger, opts ...EditorOption) *Editor {
	e := &Editor{
		state:            cloneState(state),
		saveStatus:       SaveStatusIdle,
		debounceInterval: 2 * time.Second,
		repo:             repo,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithDebounceInterval overrides the autosave/hash debounce.
func WithDebounceInterval(d time.Duration) EditorOption {
	return func(e *Editor) { e.debounceInterval = d }
}

// WithAmountResolver injects the external amount resolver used by payment
// and formula evaluation.
func WithAmountResolver(r AmountResolver) EditorOption {
	return func(e *Editor) { e.amounts = r }
}

// Snapshot returns a deep clone of the current state, safe to serialize or
// inspect without holding the editor lock.
func (e *Editor) Snapshot() *doc.DocumentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneState(e.state)
}

// SaveStatusNow reports the current save status.
func (e *Editor) SaveStatusNow() SaveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveStatus
}

// AddBlock creates a block of the given type with defaults and places it
// relative to targetID (appended to the root when targetID is empty).
// Returns a clone of the created block.
func (e *Editor) AddBlock(blockType doc.BlockType, targetID string, position doc.Position, actor string) *doc.Block {
	e.mu.Lock()
	defer e.mu.Unlock()

	if targetID != "" && FindNode(e.state.Blocks, targetID) == nil {
		e.logger.Debug("add block target missing", "target_id", targetID)
		return nil
	}

	e.recordHistory()
	node := NewBlock(blockType)
	e.state.Blocks = InsertNode(e.state.Blocks, node, targetID, position)
	e.appendAudit(actor, "block_added", string(blockType))
	e.touch()
	return CloneBlock(node)
}

// AddImportedBlock inserts an already-constructed block (e.g. from an HTML
// import) relative to targetID. Returns a clone of the inserted block.
func (e *Editor) AddImportedBlock(node *doc.Block, targetID string, position doc.Position, actor string) *doc.Block {
	e.mu.Lock()
	defer e.mu.Unlock()

	if node == nil {
		return nil
	}
	if targetID != "" && FindNode(e.state.Blocks, targetID) == nil {
		return nil
	}

	e.recordHistory()
	inserted := CloneBlock(node)
	e.state.Blocks = InsertNode(e.state.Blocks, inserted, targetID, position)
	e.appendAudit(actor, "block_imported", string(inserted.Type))
	e.touch()
	return CloneBlock(inserted)
}

// UpdateBlock shallow-merges a patch into the block with the given id.
// recordHistory is optional so keystroke-level edits can be coalesced by
// the caller. Missing ids are a silent no-op.
func (e *Editor) UpdateBlock(id string, patch doc.BlockPatch, recordHistory bool, actor string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if FindNode(e.state.Blocks, id) == nil {
		return
	}
	if recordHistory {
		e.recordHistory()
	}
	// Mutate a cloned tree so snapshots already on the history stacks
	// keep pointing at untouched blocks.
	next := CloneTree(e.state.Blocks)
	patch.Apply(FindNode(next, id))
	e.state.Blocks = next
	e.appendAudit(actor, "block_updated", id)
	e.touch()
}

// DeleteBlock removes the block and its subtree. Missing ids no-op, so a
// double-click racing a delete never errors.
func (e *Editor) DeleteBlock(id string, actor string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if FindNode(e.state.Blocks, id) == nil {
		return
	}
	e.recordHistory()
	e.state.Blocks, _ = RemoveNode(e.state.Blocks, id)
	if e.selectedID == id {
		e.selectedID = ""
	}
	e.appendAudit(actor, "block_deleted", id)
	e.touch()
}

// MoveBlock relocates a block via remove+insert. Moves whose target sits
// inside the dragged subtree are rejected: removal happens first, so such a
// move would drop the subtree or recreate it inside itself.
func (e *Editor) MoveBlock(draggedID, targetID string, position doc.Position, actor string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dragged := FindNode(e.state.Blocks, draggedID)
	if dragged == nil {
		return
	}
	if draggedID == targetID || IsDescendant(dragged, targetID) {
		e.logger.Warn("rejected move into own subtree", "dragged_id", draggedID, "target_id", targetID)
		return
	}
	if targetID != "" && FindNode(e.state.Blocks, targetID) == nil {
		return
	}

	e.recordHistory()
	next, removed := RemoveNode(e.state.Blocks, draggedID)
	e.state.Blocks = InsertNode(next, removed, targetID, position)
	e.appendAudit(actor, "block_moved", draggedID)
	e.touch()
}

// UngroupBlock replaces a container with its contents. A columns block is
// exploded into the concatenation of its columns' children; any other
// container is replaced by its direct children.
func (e *Editor) UngroupBlock(id string, actor string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := FindNode(e.state.Blocks, id)
	if node == nil {
		return
	}

	var flattened []*doc.Block
	if node.Type == doc.BlockColumns {
		for _, col := range node.Children {
			flattened = append(flattened, col.Children...)
		}
	} else {
		flattened = node.Children
	}

	e.recordHistory()
	e.state.Blocks = ReplaceNode(e.state.Blocks, id, flattened)
	if e.selectedID == id {
		e.selectedID = ""
	}
	e.appendAudit(actor, "block_ungrouped", id)
	e.touch()
}

// SelectBlock marks a block as selected in this editing session.
func (e *Editor) SelectBlock(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedID = id
}

// SelectedBlock returns the currently selected block id, empty if none.
func (e *Editor) SelectedBlock() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedID
}

// SetValue records a form answer. Answers live outside the undo history:
// undo targets document structure, not recipient input.
func (e *Editor) SetValue(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Values == nil {
		e.state.Values = map[string]string{}
	}
	if value == "" {
		delete(e.state.Values, key)
	} else {
		e.state.Values[key] = value
	}
	e.touch()
}

// AddParty appends a new party with generated id, color and initials.
func (e *Editor) AddParty(name, email string, actor string) doc.Party {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recordHistory()
	p := NewParty(name, email, len(e.state.Parties))
	e.state.Parties = append(e.state.Parties, p)
	e.appendAudit(actor, "party_added", p.Name)
	e.touch()
	return p
}

// RemoveParty deletes a party by id. Blocks keep their assignedToPartyId;
// the reference is weak and simply dangles for the rendering layer.
func (e *Editor) RemoveParty(id string, actor string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, p := range e.state.Parties {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	e.recordHistory()
	e.state.Parties = append(e.state.Parties[:idx], e.state.Parties[idx+1:]...)
	e.appendAudit(actor, "party_removed", id)
	e.touch()
}

// UpdateParty overwrites the named fields of one party.
func (e *Editor) UpdateParty(id string, name, email *string, actor string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.state.Parties {
		if e.state.Parties[i].ID != id {
			continue
		}
		e.recordHistory()
		if name != nil {
			e.state.Parties[i].Name = *name
			e.state.Parties[i].Initials = initialsOf(*name)
		}
		if email != nil {
			e.state.Parties[i].Email = *email
		}
		e.appendAudit(actor, "party_updated", id)
		e.touch()
		return
	}
}

// UpdateParties replaces the whole party list (reordering in the UI).
func (e *Editor) UpdateParties(parties []doc.Party, actor string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recordHistory()
	e.state.Parties = append([]doc.Party(nil), parties...)
	e.appendAudit(actor, "parties_updated", "")
	e.touch()
}

// Undo restores the previous snapshot. No-op when there is nothing to undo.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.past) == 0 {
		return false
	}
	prev := e.past[len(e.past)-1]
	e.past = e.past[:len(e.past)-1]
	e.future = append([]*doc.DocumentState{cloneState(e.state)}, e.future...)
	e.restoreSnapshot(prev)
	e.touch()
	return true
}

// Redo re-applies the most recently undone snapshot.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.future) == 0 {
		return false
	}
	next := e.future[0]
	e.future = e.future[1:]
	e.past = append(e.past, cloneState(e.state))
	e.restoreSnapshot(next)
	e.touch()
	return true
}

// restoreSnapshot swaps the live state for a history snapshot while keeping
// the append-only audit log and the recipients' current answers, which are
// not part of structural history.
func (e *Editor) restoreSnapshot(snapshot *doc.DocumentState) {
	snapshot.AuditLog = e.state.AuditLog
	snapshot.Values = e.state.Values
	e.state = snapshot
}

// CanUndo reports whether an undo snapshot exists.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.past) > 0
}

// CanRedo reports whether a redo snapshot exists.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.future) > 0
}

// RecordSigningEvent appends a signing action to the audit log and stamps
// the signature block. Driven by the external signing flow.
func (e *Editor) RecordSigningEvent(blockID, partyID, signatureID, ipAddress string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := FindNode(e.state.Blocks, blockID)
	if node == nil || node.Type != doc.BlockSignature {
		return
	}
	next := CloneTree(e.state.Blocks)
	signed := FindNode(next, blockID)
	signed.SignatureID = signatureID
	signed.SignedAt = time.Now().UTC().Format(time.RFC3339)
	e.state.Blocks = next

	e.state.AuditLog = append(e.state.AuditLog, doc.AuditLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    "document_signed",
		User:      partyID,
		Details:   blockID,
		IPAddress: ipAddress,
	})
	e.touch()
}

// Flush synchronously recomputes the hash and saves, bypassing the
// debounce. Used by the explicit "save now" path and on shutdown.
func (e *Editor) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
	version := e.version
	snapshot := cloneState(e.state)
	e.mu.Unlock()

	return e.hashAndSave(ctx, snapshot, version)
}

// Close stops the pending debounce timer, if any.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
}

// recordHistory pushes the current state onto the undo stack and clears the
// redo stack. Callers hold e.mu.
func (e *Editor) recordHistory() {
	e.past = append(e.past, cloneState(e.state))
	if len(e.past) > maxHistory {
		e.past = e.past[len(e.past)-maxHistory:]
	}
	e.future = nil
}

// touch bumps the version, stamps UpdatedAt and schedules the debounced
// hash/save cycle. Callers hold e.mu.
func (e *Editor) touch() {
	e.version++
	e.state.UpdatedAt = time.Now().UTC()

	if e.repo == nil {
		return
	}
	version := e.version
	snapshot := cloneState(e.state)
	if e.debounce != nil {
		e.debounce.Stop()
	}
	e.debounce = time.AfterFunc(e.debounceInterval, func() {
		if err := e.hashAndSave(context.Background(), snapshot, version); err != nil {
			e.logger.Error("debounced save failed", "document_id", snapshot.ID, "error", err)
		}
	})
}

// hashAndSave computes the content hash for the captured snapshot and
// persists it. The version stamp is compared before any derived field is
// written back, so a result computed against stale content is dropped
// instead of clobbering a fresher one. Saves run one at a time under
// saveMu: while it is held, savedVersion only moves forward from this
// call, so a snapshot that passes the staleness check is still the
// freshest write when it reaches the backend.
func (e *Editor) hashAndSave(ctx context.Context, snapshot *doc.DocumentState, version uint64) error {
	sum, err := HashDocument(snapshot)
	if err != nil {
		e.logger.Error("content hash failed", "document_id", snapshot.ID, "error", err)
		sum = HashUnavailable
	}
	snapshot.SHA256 = sum

	e.mu.Lock()
	if version >= e.hashedVersion {
		e.hashedVersion = version
		e.state.SHA256 = sum
	}
	e.mu.Unlock()

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	if version < e.savedVersion {
		e.mu.Unlock()
		return nil
	}
	e.saveStatus = SaveStatusSaving
	e.mu.Unlock()

	saveErr := e.repo.Save(ctx, snapshot)

	e.mu.Lock()
	if saveErr != nil {
		e.saveStatus = SaveStatusError
	} else {
		e.savedVersion = version
		e.saveStatus = SaveStatusSaved
	}
	e.mu.Unlock()

	return saveErr
}

func (e *Editor) appendAudit(actor, action, details string) {
	e.state.AuditLog = append(e.state.AuditLog, doc.AuditLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		User:      actor,
		Details:   details,
	})
}

// cloneState deep-copies a document state so history snapshots share no
// mutable references with the live tree.
func cloneState(s *doc.DocumentState) *doc.DocumentState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Blocks = CloneTree(s.Blocks)
	clone.Parties = append([]doc.Party(nil), s.Parties...)
	clone.Variables = append([]doc.Variable(nil), s.Variables...)
	clone.Terms = append([]doc.Term(nil), s.Terms...)
	if s.Values != nil {
		clone.Values = make(map[string]string, len(s.Values))
		for k, v := range s.Values {
			clone.Values[k] = v
		}
	}
	if s.AuditLog != nil {
		clone.AuditLog = make([]doc.AuditLogEntry, len(s.AuditLog))
		copy(clone.AuditLog, s.AuditLog)
	}
	return &clone
}

package scene

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/engine/picking"
	"github.com/Faultbox/roomstudio/internal/logger"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// DefaultMoveFraction is the nudge step as a fraction of the model diagonal.
const DefaultMoveFraction = 0.05

var (
	// ErrNonFinitePosition is returned when a position or displacement has NaN or Inf components.
	ErrNonFinitePosition = fmt.Errorf("%w: non-finite position", mesh.ErrInvalidInput)
	// ErrIDsExhausted is returned by Place once every identifier has been handed out.
	ErrIDsExhausted = errors.New("entity identifiers exhausted")
)

// Snapshot is a copy of the registry taken under one read lock.
type Snapshot struct {
	Listeners []Entity
	Sources   []Entity
}

// Defaults returns the entities a simulation needs but the snapshot lacks:
// one listener at anchor when there are no listeners, and one source at anchor
// when there are no sources but an audio asset is loaded. They carry ID 0 and
// are never stored.
func (s Snapshot) Defaults(anchor math.Vec3, audioAsset string) []Entity {
	var defaults []Entity
	if len(s.Listeners) == 0 {
		defaults = append(defaults, Entity{
			Kind:     KindListener,
			Name:     "Default Listener",
			Position: anchor,
			Volume:   1,
		})
	}
	if len(s.Sources) == 0 && audioAsset != "" {
		defaults = append(defaults, Entity{
			Kind:     KindSource,
			Name:     "Default Source",
			Position: anchor,
			Sound:    audioAsset,
			Volume:   1,
		})
	}
	return defaults
}

// WithDefaults returns a copy of s with Defaults appended.
func (s Snapshot) WithDefaults(anchor math.Vec3, audioAsset string) Snapshot {
	out := Snapshot{
		Listeners: append([]Entity(nil), s.Listeners...),
		Sources:   append([]Entity(nil), s.Sources...),
	}
	for _, e := range s.Defaults(anchor, audioAsset) {
		switch e.Kind {
		case KindListener:
			out.Listeners = append(out.Listeners, e)
		case KindSource:
			out.Sources = append(out.Sources, e)
		}
	}
	return out
}

// Registry owns the placed entities and the single selection.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities []Entity // insertion order
	nextID   uint32
	selected uint32 // 0 when nothing is selected
	step     float32
	log      *zap.Logger
}

// NewRegistry creates an empty registry. A nil logger uses the global one.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		nextID: 1,
		step:   DefaultMoveFraction,
		log:    logger.Named(log, "scene"),
	}
}

func (r *Registry) report(action, prep string, e Entity) {
	r.log.Info(fmt.Sprintf("%s %s %d %s %s", action, e.Kind, e.ID, prep, e.Position))
}

func (r *Registry) indexOf(id uint32) int {
	for i := range r.entities {
		if r.entities[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) view(e Entity) Entity {
	e.Selected = e.ID == r.selected
	return e
}

// Place creates an entity at p, typically a surface hit point.
func (r *Registry) Place(kind Kind, p math.Vec3) (Entity, error) {
	return r.place(Entity{Kind: kind, Position: p, Volume: 1})
}

// PlaceSource creates a source with its own audio asset and gain.
func (r *Registry) PlaceSource(p math.Vec3, sound string, volume float32) (Entity, error) {
	if !math.IsFinite(volume) || volume < 0 {
		return Entity{}, fmt.Errorf("%w: volume %v", mesh.ErrInvalidInput, volume)
	}
	return r.place(Entity{Kind: KindSource, Position: p, Sound: sound, Volume: volume})
}

func (r *Registry) place(e Entity) (Entity, error) {
	if e.Kind != KindListener && e.Kind != KindSource {
		return Entity{}, fmt.Errorf("%w: unknown kind %d", mesh.ErrInvalidInput, e.Kind)
	}
	if !e.Position.IsFinite() {
		return Entity{}, fmt.Errorf("place %s at %v: %w", e.Kind, e.Position, ErrNonFinitePosition)
	}

	r.mu.Lock()
	if r.nextID == 0 {
		r.mu.Unlock()
		return Entity{}, fmt.Errorf("place %s: %w", e.Kind, ErrIDsExhausted)
	}
	e.ID = r.nextID
	r.nextID++ // wraps to 0 after the last id
	e.Name = fmt.Sprintf("%s %d", e.Kind.Title(), e.ID)
	r.entities = append(r.entities, e)
	out := r.view(e)
	r.mu.Unlock()

	r.report("placed", "at", out)
	return out, nil
}

// SelectAt selects the entity under an entity pick. Any other hit clears the selection.
func (r *Registry) SelectAt(hit picking.Hit) (Entity, bool) {
	if hit.Kind != picking.HitEntity {
		r.ClearSelection()
		return Entity{}, false
	}
	return r.Select(hit.Entity)
}

// Select selects entity id and deselects every other. Unknown ids clear the selection.
func (r *Registry) Select(id uint32) (Entity, bool) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.selected = 0
		r.mu.Unlock()
		return Entity{}, false
	}
	r.selected = id
	out := r.view(r.entities[i])
	r.mu.Unlock()

	r.report("selected", "at", out)
	return out, true
}

// ClearSelection deselects everything.
func (r *Registry) ClearSelection() {
	r.mu.Lock()
	r.selected = 0
	r.mu.Unlock()
}

// Selected returns the selected entity, if any.
func (r *Registry) Selected() (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(r.selected); i >= 0 {
		return r.view(r.entities[i]), true
	}
	return Entity{}, false
}

// SetStep sets the distance one Move call covers.
func (r *Registry) SetStep(step float32) error {
	if !math.IsFinite(step) || step < 0 {
		return fmt.Errorf("%w: move step %v", mesh.ErrInvalidInput, step)
	}
	r.mu.Lock()
	r.step = step
	r.mu.Unlock()
	return nil
}

// Step returns the current move step.
func (r *Registry) Step() float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.step
}

// Move nudges the selected entity one step along axis.
// Returns false when nothing is selected.
func (r *Registry) Move(axis Axis) (Entity, bool) {
	r.mu.RLock()
	delta := axis.Vector().Scale(r.step)
	r.mu.RUnlock()

	// step is finite, so the delta is too
	e, ok, _ := r.MoveBy(delta)
	return e, ok
}

// MoveBy displaces the selected entity by delta.
// Returns false when nothing is selected.
func (r *Registry) MoveBy(delta math.Vec3) (Entity, bool, error) {
	if !delta.IsFinite() {
		return Entity{}, false, fmt.Errorf("move by %v: %w", delta, ErrNonFinitePosition)
	}

	r.mu.Lock()
	i := r.indexOf(r.selected)
	if i < 0 {
		r.mu.Unlock()
		return Entity{}, false, nil
	}
	next := r.entities[i].Position.Add(delta)
	if !next.IsFinite() {
		r.mu.Unlock()
		return Entity{}, false, fmt.Errorf("move to %v: %w", next, ErrNonFinitePosition)
	}
	r.entities[i].Position = next
	out := r.view(r.entities[i])
	r.mu.Unlock()

	r.report("moved", "to", out)
	return out, true, nil
}

// DeleteSelected removes the selected entity. Returns false when nothing is selected.
func (r *Registry) DeleteSelected() (Entity, bool) {
	r.mu.RLock()
	id := r.selected
	r.mu.RUnlock()
	if id == 0 {
		return Entity{}, false
	}
	return r.Delete(id)
}

// Delete removes entity id. Its id is never handed out again.
func (r *Registry) Delete(id uint32) (Entity, bool) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return Entity{}, false
	}
	out := r.view(r.entities[i])
	r.entities = append(r.entities[:i], r.entities[i+1:]...)
	if r.selected == id {
		r.selected = 0
	}
	r.mu.Unlock()

	r.report("deleted", "at", out)
	return out, true
}

// Get returns entity id.
func (r *Registry) Get(id uint32) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.view(r.entities[i]), true
	}
	return Entity{}, false
}

// Entities returns all entities in placement order.
func (r *Registry) Entities() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Entity, len(r.entities))
	for i, e := range r.entities {
		result[i] = r.view(e)
	}
	return result
}

// Targets returns the entity positions for picking.
func (r *Registry) Targets() []picking.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]picking.Target, len(r.entities))
	for i, e := range r.entities {
		result[i] = picking.Target{ID: e.ID, Position: e.Position}
	}
	return result
}

// Count returns the number of entities of a kind.
func (r *Registry) Count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, e := range r.entities {
		if e.Kind == kind {
			count++
		}
	}
	return count
}

// Clear removes all entities. Identifiers keep counting from where they were.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.entities = nil
	r.selected = 0
	r.mu.Unlock()
}

// DefaultsFor returns the defaults for the current contents, see Snapshot.Defaults.
func (r *Registry) DefaultsFor(anchor math.Vec3, audioAsset string) []Entity {
	defaults := r.Snapshot().Defaults(anchor, audioAsset)
	for _, e := range defaults {
		r.report("using default", "at", e)
	}
	return defaults
}

// SnapshotWithDefaults takes one snapshot and completes it with its defaults,
// so the defaults always agree with the entities they accompany.
func (r *Registry) SnapshotWithDefaults(anchor math.Vec3, audioAsset string) Snapshot {
	snap := r.Snapshot()
	for _, e := range snap.Defaults(anchor, audioAsset) {
		r.report("using default", "at", e)
	}
	return snap.WithDefaults(anchor, audioAsset)
}

// Snapshot copies the entities, split by kind, under a single read lock.
// Entity holds no references, so a value copy is already deep.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var snap Snapshot
	for _, e := range r.entities {
		c := r.view(e)
		switch c.Kind {
		case KindListener:
			snap.Listeners = append(snap.Listeners, c)
		case KindSource:
			snap.Sources = append(snap.Sources, c)
		}
	}
	return snap
}

// Package world is the emitter world the radio controller listens to: radios
// and speakers stored as donburi entities, grouped into chunks that can be
// unloaded and loaded again.
package world

import (
	"errors"
	"iter"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/yohamta/donburi"

	"spatial-radio/internal/radio"
)

// ChunkSize is the width of a chunk along X and Z, in blocks.
const ChunkSize = 16

var (
	ErrOccupied         = errors.New("position already holds an emitter")
	ErrNotFound         = errors.New("no emitter at position")
	ErrNotRadio         = errors.New("emitter is not a radio")
	ErrNotSpeaker       = errors.New("emitter is not a speaker")
	ErrChunkUnloaded    = errors.New("chunk is not loaded")
	ErrInvalidDimension = errors.New("dimension must not be empty")
)

// Config is the world tuning.
type Config struct {
	DefaultVolume     int
	DefaultStreamURL  string
	MaxURLLength      int
	RelayRefreshTicks int
}

// RadioSettings is what a client may change on a radio.
type RadioSettings struct {
	URL     string `json:"url"`
	Playing bool   `json:"playing"`
	Volume  int    `json:"volume"`
}

type chunkKey struct {
	dim    string
	cx, cz int
}

func chunkOf(dim string, pos radio.BlockPos) chunkKey {
	return chunkKey{dim: dim, cx: floorDiv(pos.X, ChunkSize), cz: floorDiv(pos.Z, ChunkSize)}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// archived is an emitter removed from the live world with its chunk.
type archived struct {
	emitter EmitterData
	radio   *RadioData
	speaker *SpeakerData
}

// World holds every emitter. It is safe for concurrent use: edits come from
// HTTP handlers while scans and relay refreshes run on the tick goroutine.
type World struct {
	mu       sync.RWMutex
	ecs      donburi.World
	cfg      Config
	fallback *FallbackStore
	log      *slog.Logger

	// chunks indexes the live entities of every chunk that holds at least one.
	chunks   map[chunkKey]map[radio.BlockPos]donburi.Entity
	unloaded map[chunkKey][]archived
	ticks    uint64
}

// New returns an empty world. Every chunk starts loaded.
func New(cfg Config, fallback *FallbackStore, log *slog.Logger) *World {
	if cfg.RelayRefreshTicks < 1 {
		cfg.RelayRefreshTicks = 1
	}
	return &World{
		ecs:      donburi.NewWorld(),
		cfg:      cfg,
		fallback: fallback,
		log:      log,
		chunks:   make(map[chunkKey]map[radio.BlockPos]donburi.Entity),
		unloaded: make(map[chunkKey][]archived),
	}
}

// PlaceRadio creates a source at pos with the default volume and, when
// configured, the default stream URL. New radios are not playing.
func (w *World) PlaceRadio(dim string, pos radio.BlockPos) (RadioSettings, error) {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return RadioSettings{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkFreeLocked(dim, pos); err != nil {
		return RadioSettings{}, err
	}

	state := RadioData{
		URL:    radio.SanitizeURL(w.cfg.DefaultStreamURL, w.cfg.MaxURLLength),
		Volume: clampVolume(w.cfg.DefaultVolume),
	}
	w.createLocked(EmitterData{Dimension: dim, Pos: pos, Priority: radio.PriorityPrimary}, &state, nil)
	w.publishLocked(dim, pos, state)
	return settingsOf(state), nil
}

// PlaceSpeaker creates an unlinked relay at pos.
func (w *World) PlaceSpeaker(dim string, pos radio.BlockPos) error {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkFreeLocked(dim, pos); err != nil {
		return err
	}
	cache := emptySpeakerCache(nil)
	w.createLocked(EmitterData{Dimension: dim, Pos: pos, Priority: radio.PrioritySecondary}, nil, &cache)
	return nil
}

// UpdateRadio applies client settings to the radio at pos and returns what was
// stored: the URL trimmed and truncated, playing forced off unless the URL is
// http(s), the volume clamped to 0..100.
func (w *World) UpdateRadio(dim string, pos radio.BlockPos, in RadioSettings) (RadioSettings, error) {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return RadioSettings{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	entry, err := w.entryLocked(dim, pos)
	if err != nil {
		return RadioSettings{}, err
	}
	if !entry.HasComponent(Radio) {
		return RadioSettings{}, ErrNotRadio
	}

	url := strings.TrimSpace(in.URL)
	if w.cfg.MaxURLLength > 0 && len(url) > w.cfg.MaxURLLength {
		url = url[:w.cfg.MaxURLLength]
	}
	state := Radio.Get(entry)
	changed := url != state.URL
	state.URL = url
	state.Playing = in.Playing && radio.IsStreamURL(url)
	state.Volume = clampVolume(in.Volume)

	w.publishLocked(dim, pos, *state)
	if changed && url != "" {
		w.log.Info("radio link changed",
			slog.String("dimension", dim),
			slog.Int("x", pos.X), slog.Int("y", pos.Y), slog.Int("z", pos.Z),
			slog.String("url", url))
	}
	return settingsOf(*state), nil
}

// LinkSpeaker points the speaker at pos to a radio. A nil link unlinks it.
// The cached state is reset either way and refilled on the next refresh.
func (w *World) LinkSpeaker(dim string, pos radio.BlockPos, link *Link) error {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return err
	}
	if link != nil {
		l := *link
		if l.Dimension, err = normalizeDimension(l.Dimension); err != nil {
			return err
		}
		link = &l
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	entry, err := w.entryLocked(dim, pos)
	if err != nil {
		return err
	}
	if !entry.HasComponent(Speaker) {
		return ErrNotSpeaker
	}
	*Speaker.Get(entry) = emptySpeakerCache(link)
	return nil
}

// Remove deletes the emitter at pos. Removing a radio also drops its
// fallback record.
func (w *World) Remove(dim string, pos radio.BlockPos) error {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	entry, err := w.entryLocked(dim, pos)
	if err != nil {
		return err
	}
	isRadio := entry.HasComponent(Radio)

	key := chunkOf(dim, pos)
	w.ecs.Remove(entry.Entity())
	delete(w.chunks[key], pos)
	if len(w.chunks[key]) == 0 {
		delete(w.chunks, key)
	}

	if isRadio && w.fallback != nil {
		if err := w.fallback.Delete(dim, pos); err != nil {
			w.log.Warn("failed to delete fallback record", slog.String("error", err.Error()))
		}
	}
	return nil
}

// UnloadChunk takes the chunk's emitters out of the live world. Radios are
// published first so relays elsewhere keep hearing their last state.
// Unloading an unloaded chunk is a no-op.
func (w *World) UnloadChunk(dim string, cx, cz int) error {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	key := chunkKey{dim: dim, cx: cx, cz: cz}
	if _, ok := w.unloaded[key]; ok {
		return nil
	}

	var saved []archived
	for pos, e := range w.chunks[key] {
		entry := w.ecs.Entry(e)
		a := archived{emitter: *Emitter.Get(entry)}
		if entry.HasComponent(Radio) {
			r := *Radio.Get(entry)
			a.radio = &r
			w.publishLocked(dim, pos, r)
		}
		if entry.HasComponent(Speaker) {
			s := *Speaker.Get(entry)
			a.speaker = &s
		}
		saved = append(saved, a)
		w.ecs.Remove(e)
	}
	delete(w.chunks, key)
	w.unloaded[key] = saved

	w.log.Debug("chunk unloaded", slog.String("dimension", dim), slog.Int("cx", cx), slog.Int("cz", cz), slog.Int("emitters", len(saved)))
	return nil
}

// LoadChunk restores an unloaded chunk and republishes its radios. Loading a
// loaded chunk is a no-op.
func (w *World) LoadChunk(dim string, cx, cz int) error {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	key := chunkKey{dim: dim, cx: cx, cz: cz}
	saved, ok := w.unloaded[key]
	if !ok {
		return nil
	}
	delete(w.unloaded, key)

	for _, a := range saved {
		w.createLocked(a.emitter, a.radio, a.speaker)
		if a.radio != nil {
			w.publishLocked(dim, a.emitter.Pos, *a.radio)
		}
	}

	w.log.Debug("chunk loaded", slog.String("dimension", dim), slog.Int("cx", cx), slog.Int("cz", cz), slog.Int("emitters", len(saved)))
	return nil
}

// Tick advances the world by one game tick and refreshes relays every
// RelayRefreshTicks ticks.
func (w *World) Tick() {
	w.mu.Lock()
	w.ticks++
	due := w.ticks%uint64(w.cfg.RelayRefreshTicks) == 0
	w.mu.Unlock()

	if due {
		w.RefreshRelays()
	}
}

// RefreshRelays copies every speaker's linked radio state into its cache.
func (w *World) RefreshRelays() {
	w.mu.Lock()
	defer w.mu.Unlock()

	Speaker.Each(w.ecs, func(entry *donburi.Entry) {
		em := Emitter.Get(entry)
		sp := Speaker.Get(entry)
		*sp = w.relayStateLocked(em.Dimension, sp)
	})
}

func (w *World) relayStateLocked(dim string, sp *SpeakerData) SpeakerData {
	link := sp.Link
	if link == nil || link.Dimension != dim {
		return emptySpeakerCache(link)
	}

	if _, unloaded := w.unloaded[chunkOf(link.Dimension, link.Pos)]; !unloaded {
		entry, err := w.entryLocked(link.Dimension, link.Pos)
		if err != nil || !entry.HasComponent(Radio) {
			return emptySpeakerCache(link)
		}
		return relayCopy(link, *Radio.Get(entry))
	}

	if w.fallback == nil {
		return *sp
	}
	rec, ok, err := w.fallback.Get(link.Dimension, link.Pos)
	if err != nil {
		w.log.Warn("failed to read fallback record", slog.String("error", err.Error()))
		return *sp
	}
	if !ok {
		return *sp
	}
	return relayCopy(link, RadioData{URL: rec.URL, Playing: rec.Playing, Volume: rec.Volume})
}

func relayCopy(link *Link, r RadioData) SpeakerData {
	url := strings.TrimSpace(r.URL)
	return SpeakerData{
		Link:    link,
		URL:     url,
		Playing: r.Playing && url != "",
		Volume:  clampVolume(r.Volume),
	}
}

// EmittersInRegion yields the emitters of dim in loaded chunks overlapping the
// cube of half-width halfExtent around center. Emitters near the cube's edge
// may fall slightly outside it; the caller filters.
func (w *World) EmittersInRegion(dim string, center radio.Vec3, halfExtent float64) iter.Seq[radio.RawSource] {
	return func(yield func(radio.RawSource) bool) {
		if halfExtent < 0 {
			return
		}
		minCX, maxCX := chunkRange(center.X, halfExtent)
		minCZ, maxCZ := chunkRange(center.Z, halfExtent)

		w.mu.RLock()
		defer w.mu.RUnlock()
		for cx := minCX; cx <= maxCX; cx++ {
			for cz := minCZ; cz <= maxCZ; cz++ {
				for _, e := range w.chunks[chunkKey{dim: dim, cx: cx, cz: cz}] {
					if !yield(w.rawSourceLocked(e)) {
						return
					}
				}
			}
		}
	}
}

// EmitterView describes one live emitter.
type EmitterView struct {
	Dimension string         `json:"dimension"`
	Pos       radio.BlockPos `json:"pos"`
	Kind      string         `json:"kind"`
	URL       string         `json:"url"`
	Playing   bool           `json:"playing"`
	Volume    int            `json:"volume"`
	Link      *Link          `json:"link,omitempty"`
}

// Get returns the emitter at pos.
func (w *World) Get(dim string, pos radio.BlockPos) (EmitterView, error) {
	dim, err := normalizeDimension(dim)
	if err != nil {
		return EmitterView{}, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	entry, err := w.entryLocked(dim, pos)
	if err != nil {
		return EmitterView{}, err
	}
	view := EmitterView{Dimension: dim, Pos: pos}
	switch {
	case entry.HasComponent(Radio):
		r := Radio.Get(entry)
		view.Kind, view.URL, view.Playing, view.Volume = "radio", r.URL, r.Playing, r.Volume
	case entry.HasComponent(Speaker):
		s := Speaker.Get(entry)
		view.Kind, view.URL, view.Playing, view.Volume = "speaker", s.URL, s.Playing, s.Volume
		if s.Link != nil {
			l := *s.Link
			view.Link = &l
		}
	}
	return view, nil
}

func (w *World) rawSourceLocked(e donburi.Entity) radio.RawSource {
	entry := w.ecs.Entry(e)
	em := Emitter.Get(entry)
	src := radio.RawSource{Pos: em.Pos, Priority: em.Priority}
	switch {
	case entry.HasComponent(Radio):
		r := Radio.Get(entry)
		src.URL, src.Playing, src.Volume = r.URL, r.Playing, r.Volume
	case entry.HasComponent(Speaker):
		s := Speaker.Get(entry)
		src.URL, src.Playing, src.Volume = s.URL, s.Playing, s.Volume
	}
	return src
}

func (w *World) checkFreeLocked(dim string, pos radio.BlockPos) error {
	key := chunkOf(dim, pos)
	if _, ok := w.unloaded[key]; ok {
		return ErrChunkUnloaded
	}
	if _, ok := w.chunks[key][pos]; ok {
		return ErrOccupied
	}
	return nil
}

func (w *World) entryLocked(dim string, pos radio.BlockPos) (*donburi.Entry, error) {
	key := chunkOf(dim, pos)
	if _, ok := w.unloaded[key]; ok {
		return nil, ErrChunkUnloaded
	}
	e, ok := w.chunks[key][pos]
	if !ok || !w.ecs.Valid(e) {
		return nil, ErrNotFound
	}
	return w.ecs.Entry(e), nil
}

func (w *World) createLocked(em EmitterData, r *RadioData, s *SpeakerData) {
	var entity donburi.Entity
	switch {
	case r != nil:
		entity = w.ecs.Create(Emitter, Radio)
	default:
		entity = w.ecs.Create(Emitter, Speaker)
	}
	entry := w.ecs.Entry(entity)
	Emitter.Set(entry, &em)
	if r != nil {
		state := *r
		Radio.Set(entry, &state)
	}
	if s != nil {
		state := *s
		Speaker.Set(entry, &state)
	}

	key := chunkOf(em.Dimension, em.Pos)
	if w.chunks[key] == nil {
		w.chunks[key] = make(map[radio.BlockPos]donburi.Entity)
	}
	w.chunks[key][em.Pos] = entity
}

func (w *World) publishLocked(dim string, pos radio.BlockPos, r RadioData) {
	if w.fallback == nil {
		return
	}
	if err := w.fallback.Put(dim, pos, Record{URL: r.URL, Playing: r.Playing, Volume: r.Volume}); err != nil {
		w.log.Warn("failed to publish radio state", slog.String("error", err.Error()))
	}
}

func chunkRange(center, half float64) (int, int) {
	lo := int(math.Floor((center - half) / ChunkSize))
	hi := int(math.Floor((center + half) / ChunkSize))
	return lo, hi
}

func normalizeDimension(dim string) (string, error) {
	dim = strings.TrimSpace(dim)
	if dim == "" {
		return "", ErrInvalidDimension
	}
	return dim, nil
}

func settingsOf(r RadioData) RadioSettings {
	return RadioSettings{URL: r.URL, Playing: r.Playing, Volume: r.Volume}
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}

var _ radio.EmitterProvider = (*World)(nil)

package tasks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/IFAKA/spotiytm/internal/repositories"
	"github.com/IFAKA/spotiytm/internal/services"
	"github.com/IFAKA/spotiytm/internal/shared"
	"github.com/charmbracelet/log"
)

// Defaults for the conversion orchestrator.
const (
	DefaultConcurrency        = 5
	DefaultCheckpointInterval = 10
	DefaultBatchSize          = 50
)

// TrackKey derives the checkpoint cache key for a track. The separator is
// arbitrary but fixed; distinct tracks with identical artists and title
// collide, which is an accepted approximation of track identity, not a bug
// to fix with different semantics.
func TrackKey(t services.Track) string {
	return t.Artists + "||" + t.Title
}

// CheckpointStore is the durable resumption record for a conversion,
// keyed by source playlist id.
type CheckpointStore interface {
	// Load returns the stored checkpoint, or an empty default when none
	// exists. "Exists but unreadable" is an error, never an empty default.
	Load(ctx context.Context, sourceID string) (*repositories.Checkpoint, error)

	// Save replaces the record and is durable before returning.
	Save(ctx context.Context, sourceID string, cp *repositories.Checkpoint) error

	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, sourceID string) error
}

// Converter orchestrates a playlist conversion across the track source, the
// resolver, the playlist sink and the checkpoint store.
type Converter struct {
	source   services.TrackSource
	resolver services.Resolver
	sink     services.PlaylistSink
	store    CheckpointStore
	logger   *log.Logger

	// onAuthExpired signals the auth collaborator when the sink reports an
	// auth-class failure.
	onAuthExpired func()

	concurrency        int
	checkpointInterval int
	batchSize          int
}

// ConverterOpts contains dependencies and tuning for a Converter.
type ConverterOpts struct {
	Source        services.TrackSource
	Resolver      services.Resolver
	Sink          services.PlaylistSink
	Store         CheckpointStore
	Logger        *log.Logger
	OnAuthExpired func()

	Concurrency        int // resolution pool width, default 5
	CheckpointInterval int // completions between saves, default 10
	BatchSize          int // identifiers per append call, default 50
}

// NewConverter creates a Converter with defaults applied.
func NewConverter(opts ConverterOpts) *Converter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	return &Converter{
		source:             opts.Source,
		resolver:           opts.Resolver,
		sink:               opts.Sink,
		store:              opts.Store,
		logger:             opts.Logger,
		onAuthExpired:      opts.OnAuthExpired,
		concurrency:        opts.Concurrency,
		checkpointInterval: opts.CheckpointInterval,
		batchSize:          opts.BatchSize,
	}
}

// Convert runs a full conversion for a playlist reference and returns the
// progress event channel. The channel is closed when the conversion
// terminates, successfully or not. Cancelling the context stops event
// production and prevents further sink calls; in-flight resolutions may
// still complete but their results go nowhere.
func (c *Converter) Convert(ctx context.Context, reference string) <-chan Event {
	events := make(chan Event, 64)
	go func() {
		defer close(events)
		c.run(ctx, reference, events)
	}()
	return events
}

// emit delivers an event unless the consumer is gone. A false return means
// cancellation was observed and the conversion should stop quietly.
func (c *Converter) emit(ctx context.Context, out chan<- Event, e Event) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// resolution is one completed track lookup, in completion order.
type resolution struct {
	idx     int
	track   services.Track
	videoID string
}

// orderedID pairs a resolved id with its source position so the apply
// phase can restore source ordering.
type orderedID struct {
	pos     int
	videoID string
}

func (c *Converter) run(ctx context.Context, reference string, out chan<- Event) {
	logger := shared.WithLogger(c.logger, "run", shared.GenerateID())

	sourceID, err := services.ExtractPlaylistID(reference)
	if err != nil {
		c.emit(ctx, out, Errorf("%v", err))
		return
	}
	logger = shared.WithLogger(logger, "playlist", sourceID)

	if !c.emit(ctx, out, NewFetching()) {
		return
	}

	export, err := c.source.FetchPlaylist(ctx, reference)
	if err != nil {
		logger.Error("source fetch failed", "error", err)
		c.emit(ctx, out, Errorf("Spotify fetch failed: %v", err))
		return
	}

	total := len(export.Tracks)
	if !c.emit(ctx, out, NewFetched(export.Name, total)) {
		return
	}
	if !c.emit(ctx, out, Logf("Fetched %q, %d tracks from Spotify", export.Name, total)) {
		return
	}

	cp, err := c.store.Load(ctx, sourceID)
	if err != nil {
		logger.Error("checkpoint load failed", "error", err)
		c.emit(ctx, out, Errorf("could not read checkpoint: %v", err))
		return
	}

	applied := cp.AppliedVideoIDs()

	if cp.PlaylistID != "" {
		if !c.emit(ctx, out, Logf("Resuming from checkpoint: %d tracks already added, playlist %s, %d previously missing",
			len(applied), cp.PlaylistID, len(cp.Results)-len(applied))) {
			return
		}
	} else if !c.emit(ctx, out, Logf("No checkpoint, starting fresh")) {
		return
	}

	// Create the target playlist at most once per source playlist id. The
	// checkpoint is saved before anything else happens so a crash after
	// creation cannot produce a duplicate playlist on retry.
	if cp.PlaylistID == "" {
		playlistID, err := c.sink.CreatePlaylist(ctx, export.Name+" (converted)", "Converted from "+reference)
		if err != nil {
			logger.Error("playlist creation failed", "error", err)
			if errors.Is(err, shared.ErrAuthExpired) {
				if c.onAuthExpired != nil {
					c.onAuthExpired()
				}
				c.emit(ctx, out, Errorf("YouTube Music credentials expired. Please reconnect."))
			} else {
				c.emit(ctx, out, Errorf("could not create playlist: %v", err))
			}
			return
		}

		cp.PlaylistID = playlistID
		if err := c.store.Save(ctx, sourceID, cp); err != nil {
			logger.Error("checkpoint save failed", "error", err)
			c.emit(ctx, out, Errorf("could not save checkpoint: %v", err))
			return
		}
		if !c.emit(ctx, out, Logf("Created YouTube Music playlist: %s", playlistID)) {
			return
		}
	} else if !c.emit(ctx, out, Logf("Reusing existing YouTube Music playlist: %s", cp.PlaylistID)) {
		return
	}

	newIDs, missingTracks, ok := c.resolveAll(ctx, out, logger, sourceID, export.Tracks, cp, applied)
	if !ok {
		return
	}

	if !c.emit(ctx, out, Logf("Search complete: %d found total (%d new + %d previously added), %d not found",
		total-len(missingTracks), len(newIDs), len(applied), len(missingTracks))) {
		return
	}

	videoIDs := orderAndDedupe(newIDs)

	if !c.applyBatches(ctx, out, logger, cp.PlaylistID, videoIDs) {
		return
	}

	found := total - len(missingTracks)
	if !c.emit(ctx, out, NewDone(cp.PlaylistID, found, missingTracks)) {
		return
	}

	// Success: next conversion of this playlist starts fresh.
	if err := c.store.Delete(ctx, sourceID); err != nil {
		logger.Warn("checkpoint delete failed", "error", err)
	}
}

// resolveAll runs the bounded-concurrency resolution phase. Cached keys are
// reused without touching the resolver; everything else is resolved under a
// semaphore of width concurrency. Track events stream in completion order.
// Returns ok=false when cancellation was observed.
func (c *Converter) resolveAll(
	ctx context.Context,
	out chan<- Event,
	logger *log.Logger,
	sourceID string,
	tracks []services.Track,
	cp *repositories.Checkpoint,
	applied map[string]struct{},
) ([]orderedID, []MissingTrack, bool) {
	total := len(tracks)

	var mu sync.Mutex // guards cp.Results across workers and saves
	cachedCount := len(cp.Results)

	if total > cachedCount {
		if !c.emit(ctx, out, Logf("Searching %d tracks on YouTube Music (%d concurrent)", total-cachedCount, c.concurrency)) {
			return nil, nil, false
		}
	} else if !c.emit(ctx, out, Logf("All %d tracks already searched (from checkpoint)", total)) {
		return nil, nil, false
	}

	sem := make(chan struct{}, c.concurrency)
	results := make(chan resolution)

	for i, t := range tracks {
		go func(idx int, track services.Track) {
			key := TrackKey(track)

			mu.Lock()
			cached, ok := cp.Results[key]
			mu.Unlock()

			var videoID string
			if ok {
				if cached != nil {
					videoID = *cached
				}
			} else {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				resolved, err := c.resolver.ResolveTrack(ctx, track.Title, track.Artists)
				<-sem

				if err != nil {
					// Degraded, not fatal: a transport failure for one
					// track becomes a missing result for that slot.
					logger.Warn("resolve failed", "track", track.Title, "error", err)
					resolved = ""
				}
				videoID = resolved

				mu.Lock()
				if videoID == "" {
					cp.Results[key] = nil
				} else {
					v := videoID
					cp.Results[key] = &v
				}
				mu.Unlock()
			}

			select {
			case results <- resolution{idx: idx, track: track, videoID: videoID}:
			case <-ctx.Done():
			}
		}(i, t)
	}

	var newIDs []orderedID
	missingTracks := []MissingTrack{}

	save := func() {
		mu.Lock()
		err := c.store.Save(ctx, sourceID, cp)
		mu.Unlock()
		if err != nil {
			logger.Warn("checkpoint save failed", "error", err)
		}
	}

	for completed := 0; completed < total; {
		select {
		case <-ctx.Done():
			return nil, nil, false
		case res := <-results:
			completed++

			if !c.emit(ctx, out, NewTrack(completed, total, res.track, res.videoID)) {
				return nil, nil, false
			}

			if res.videoID != "" {
				if _, done := applied[res.videoID]; !done {
					newIDs = append(newIDs, orderedID{pos: res.idx, videoID: res.videoID})
				}
			} else {
				missingTracks = append(missingTracks, MissingTrack{Name: res.track.Title, Artists: res.track.Artists})
			}

			if completed%c.checkpointInterval == 0 {
				save()
			}
		}
	}

	save()
	return newIDs, missingTracks, true
}

// orderAndDedupe restores source ordering over the newly resolved ids and
// drops later duplicates: when several source tracks resolve to the same
// target item, only the earliest position is kept.
func orderAndDedupe(ids []orderedID) []string {
	sort.Slice(ids, func(i, j int) bool { return ids[i].pos < ids[j].pos })

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id.videoID]; dup {
			continue
		}
		seen[id.videoID] = struct{}{}
		out = append(out, id.videoID)
	}
	return out
}

// applyBatches appends the ordered ids in fixed-size batches. A batch
// failure terminates the conversion; applied batches stand and the
// checkpoint already reflects resolution, so a retry only re-attempts the
// append work. Returns false when the conversion should stop.
func (c *Converter) applyBatches(ctx context.Context, out chan<- Event, logger *log.Logger, playlistID string, videoIDs []string) bool {
	if len(videoIDs) == 0 {
		return c.emit(ctx, out, Logf("No new tracks to add (all already in playlist or none found)"))
	}

	batches := (len(videoIDs) + c.batchSize - 1) / c.batchSize
	if !c.emit(ctx, out, Logf("Adding %d new tracks in %d batch(es)", len(videoIDs), batches)) {
		return false
	}

	for start, num := 0, 1; start < len(videoIDs); start, num = start+c.batchSize, num+1 {
		end := min(start+c.batchSize, len(videoIDs))

		if !c.emit(ctx, out, Logf("Batch %d/%d: %d tracks", num, batches, end-start)) {
			return false
		}

		if err := c.sink.AddPlaylistItems(ctx, playlistID, videoIDs[start:end]); err != nil {
			logger.Error("batch append failed", "batch", num, "error", err)
			if errors.Is(err, shared.ErrAuthExpired) && c.onAuthExpired != nil {
				c.onAuthExpired()
			}
			c.emit(ctx, out, Errorf("error adding tracks to playlist: %v", err))
			return false
		}
	}

	return true
}

package discovery

import (
	"context"
	"sort"
	"time"

	goerrors "errors"

	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/db"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/geo"
	"github.com/sparklabs/spark-backend/internal/repository"
)

const (
	// passResurfaceAfter is how long a "pass" keeps a candidate out of the
	// feed. A like excludes forever; matches are surfaced separately.
	passResurfaceAfter = 7 * 24 * time.Hour

	// maxRadiusKm is the hard discovery radius.
	maxRadiusKm = 200.0

	// nearBucketKm is the preference cliff: candidates beyond it sort after
	// every candidate within it regardless of shared interests.
	nearBucketKm = 30.0

	noMessagesPlaceholder = "No messages yet"
)

// Service implements the discovery feed, the swipe/match/undo flow,
// blocking and the match list.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	swipes  *repository.SwipeRepository
	matches *repository.MatchRepository
	blocks  *repository.BlockRepository
	msgs    *repository.MessageRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		swipes:  repository.NewSwipeRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
		blocks:  repository.NewBlockRepository(appCtx.DB),
		msgs:    repository.NewMessageRepository(appCtx.DB),
	}
}

// Candidate is a discovery or single-profile result.
type Candidate struct {
	ID                   uint64      `json:"id"`
	FullName             string      `json:"full_name"`
	Bio                  string      `json:"bio"`
	Age                  int         `json:"age"`
	Distance             float64     `json:"distance"`
	Images               []ImageView `json:"images"`
	Interests            []string    `json:"interests"`
	CommonInterests      []string    `json:"common_interests,omitempty"`
	CommonInterestsCount int         `json:"common_interests_count"`

	// raw (unrounded) distance, kept for the sort keys only
	rawDistance float64
}

type ImageView struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// Feed produces the ranked candidate list for the viewer. A viewer without
// a location or profile gets an empty list, not an error.
func (s *Service) Feed(ctx context.Context, viewerID uint64) ([]Candidate, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, apperr.Map(err)
	}
	if viewer.Location == nil || viewer.Profile == nil {
		return []Candidate{}, nil
	}

	excluded, err := s.exclusionSet(ctx, viewerID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	genderFilter := ""
	if viewer.Profile.InterestIn != db.InterestBoth {
		genderFilter = viewer.Profile.InterestIn
	}
	pool, err := s.users.CandidatePool(ctx, excluded, genderFilter)
	if err != nil {
		return nil, apperr.Map(err)
	}

	// Calendar-year age filter, inclusive on both bounds.
	thisYear := time.Now().Year()
	eligible := pool[:0]
	for _, p := range pool {
		age := thisYear - p.Birthdate.Year()
		if age >= viewer.Profile.AgeMin && age <= viewer.Profile.AgeMax {
			eligible = append(eligible, p)
		}
	}

	ids := make([]uint64, 0, len(eligible))
	for _, p := range eligible {
		ids = append(ids, p.UserID)
	}
	locations, err := s.users.LocationsFor(ctx, ids)
	if err != nil {
		return nil, apperr.Map(err)
	}

	viewerTags := viewer.Profile.InterestTags
	results := make([]Candidate, 0, len(eligible))
	for i := range eligible {
		p := &eligible[i]

		// Candidates with an unknown distance are silently dropped.
		loc, ok := locations[p.UserID]
		if !ok {
			continue
		}
		dist := geo.Distance(viewer.Location.Latitude, viewer.Location.Longitude, loc.Latitude, loc.Longitude)
		if dist > maxRadiusKm {
			continue
		}

		common := sharedTags(viewerTags, p.InterestTags)
		cand := newCandidate(p, thisYear, dist)
		cand.CommonInterestsCount = len(common)
		results = append(results, cand)
	}

	sortCandidates(results)
	return results, nil
}

// View is the single-profile variant. Unlike the feed, a missing location on
// either side yields a 0.0 distance instead of dropping the profile.
func (s *Service) View(ctx context.Context, viewerID, targetID uint64) (*Candidate, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil || target.Profile == nil {
		return nil, apperr.NotFound("user profile not found")
	}
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	dist := 0.0
	if viewer.Location != nil && target.Location != nil {
		dist = geo.Distance(viewer.Location.Latitude, viewer.Location.Longitude,
			target.Location.Latitude, target.Location.Longitude)
	}

	var viewerTags []string
	if viewer.Profile != nil {
		viewerTags = viewer.Profile.InterestTags
	}
	common := sharedTags(viewerTags, target.Profile.InterestTags)

	cand := newCandidate(target.Profile, time.Now().Year(), dist)
	cand.CommonInterests = common
	cand.CommonInterestsCount = len(common)
	return &cand, nil
}

// Swipe records the decision and reports whether it formed a new match.
// The reciprocal check and match insert run inside one transaction so two
// near-simultaneous reciprocal likes cannot produce duplicate matches; the
// canonical pair index backstops the race.
func (s *Service) Swipe(ctx context.Context, actorID, targetID uint64, isLike bool) (bool, error) {
	if actorID == targetID {
		return false, apperr.Validation("cannot swipe on yourself")
	}
	if exists, err := s.users.Exists(ctx, targetID); err != nil {
		return false, apperr.Map(err)
	} else if !exists {
		return false, apperr.NotFound("user not found")
	}

	var matched bool
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swipes := repository.NewSwipeRepository(tx)
		if _, err := swipes.Create(ctx, actorID, targetID, isLike); err != nil {
			return err
		}
		if !isLike {
			return nil
		}

		reciprocal, err := swipes.HasLiked(ctx, targetID, actorID)
		if err != nil || !reciprocal {
			return err
		}

		_, created, err := repository.NewMatchRepository(tx).CreateIfAbsent(ctx, actorID, targetID)
		matched = created
		return err
	})
	if err != nil {
		return false, apperr.Map(err)
	}

	if matched {
		s.appCtx.Hub.SendIfConnected(actorID, map[string]any{"type": "new_match", "user_id": targetID})
		s.appCtx.Hub.SendIfConnected(targetID, map[string]any{"type": "new_match", "user_id": actorID})
	}
	return matched, nil
}

// UndoLast reverses the actor's most recent decision. Undoing a like tears
// down the match and the conversation, mirroring block cleanup but without
// inserting a block row. Returns the target of the undone swipe.
func (s *Service) UndoLast(ctx context.Context, actorID uint64) (uint64, error) {
	var undoneTarget uint64
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swipes := repository.NewSwipeRepository(tx)

		last, err := swipes.LatestByLiker(ctx, actorID)
		if err != nil {
			if goerrors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no swipe history found to undo")
			}
			return err
		}

		if last.IsLike {
			if err := repository.NewMatchRepository(tx).DeleteBetween(ctx, actorID, last.LikedID); err != nil {
				return err
			}
			if err := repository.NewMessageRepository(tx).DeleteBetween(ctx, actorID, last.LikedID); err != nil {
				return err
			}
		}

		undoneTarget = last.LikedID
		return swipes.Delete(ctx, last.ID)
	})
	if err != nil {
		return 0, apperr.Map(err)
	}
	return undoneTarget, nil
}

// BlockUser runs the compensating cleanup and notifies the blocked party.
// Self-blocks are rejected by the handler before this is called.
func (s *Service) BlockUser(ctx context.Context, blockerID, blockedID uint64) error {
	if err := s.blocks.Block(ctx, blockerID, blockedID); err != nil {
		return apperr.Map(err)
	}
	s.appCtx.Hub.SendIfConnected(blockedID, map[string]any{"type": "user_blocked", "blocked_by": blockerID})
	return nil
}

// MatchEntry is one row of the match list.
type MatchEntry struct {
	MatchID     uint64    `json:"match_id"`
	UserID      uint64    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Age         int       `json:"age"`
	Image       string    `json:"image"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
}

// Matches lists the caller's matches newest-first, each joined with the
// other account's profile summary and the latest message preview.
func (s *Service) Matches(ctx context.Context, userID uint64) ([]MatchEntry, error) {
	matches, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	thisYear := time.Now().Year()
	entries := make([]MatchEntry, 0, len(matches))
	for _, m := range matches {
		otherID := m.User1ID
		if otherID == userID {
			otherID = m.User2ID
		}

		other, err := s.users.GetByID(ctx, otherID)
		if err != nil || other.Profile == nil {
			continue
		}

		entry := MatchEntry{
			MatchID:     m.ID,
			UserID:      otherID,
			FullName:    other.Profile.FullName,
			LastMessage: noMessagesPlaceholder,
			CreatedAt:   m.CreatedAt,
		}
		if !other.Profile.Birthdate.IsZero() {
			entry.Age = thisYear - other.Profile.Birthdate.Year()
		}
		if img := primaryImage(other.Profile.Images); img != nil {
			entry.Image = img.URL
		}

		last, err := s.msgs.LatestBetween(ctx, userID, otherID)
		if err != nil {
			return nil, apperr.Map(err)
		}
		if last != nil {
			entry.LastMessage = last.Content
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].MatchID > entries[j].MatchID
	})
	return entries, nil
}

// --- helpers ---

func (s *Service) exclusionSet(ctx context.Context, viewerID uint64) ([]uint64, error) {
	swiped, err := s.swipes.ExcludedIDs(ctx, viewerID, time.Now().Add(-passResurfaceAfter))
	if err != nil {
		return nil, err
	}
	blocked, err := s.blocks.BlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	blockers, err := s.blocks.BlockerIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	out := make([]uint64, 0, len(swiped)+len(blocked)+len(blockers)+1)
	out = append(out, swiped...)
	out = append(out, blocked...)
	out = append(out, blockers...)
	out = append(out, viewerID)
	return out, nil
}

func newCandidate(p *db.Profile, thisYear int, dist float64) Candidate {
	cand := Candidate{
		ID:          p.UserID,
		FullName:    p.FullName,
		Bio:         p.Bio,
		Distance:    roundKm(dist),
		Interests:   p.InterestTags,
		Images:      make([]ImageView, 0, len(p.Images)),
		rawDistance: dist,
	}
	if cand.Interests == nil {
		cand.Interests = []string{}
	}
	if !p.Birthdate.IsZero() {
		cand.Age = thisYear - p.Birthdate.Year()
	}
	for _, img := range sortedByPosition(p.Images) {
		cand.Images = append(cand.Images, ImageView{URL: img.URL, Position: img.Position})
	}
	return cand
}

// sortCandidates orders the feed: close-and-relevant first, with a hard
// preference cliff at nearBucketKm, then shared-interest count descending,
// then raw distance ascending.
func sortCandidates(results []Candidate) {
	sort.Slice(results, func(i, j int) bool {
		farI, farJ := results[i].rawDistance > nearBucketKm, results[j].rawDistance > nearBucketKm
		if farI != farJ {
			return !farI
		}
		if results[i].CommonInterestsCount != results[j].CommonInterestsCount {
			return results[i].CommonInterestsCount > results[j].CommonInterestsCount
		}
		return results[i].rawDistance < results[j].rawDistance
	})
}

// sharedTags returns the deduplicated intersection of two tag lists.
func sharedTags(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	out := []string{}
	for _, t := range b {
		if _, ok := set[t]; ok {
			out = append(out, t)
			delete(set, t)
		}
	}
	return out
}

func sortedByPosition(images []db.ProfileImage) []db.ProfileImage {
	out := make([]db.ProfileImage, len(images))
	copy(out, images)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func primaryImage(images []db.ProfileImage) *db.ProfileImage {
	sorted := sortedByPosition(images)
	if len(sorted) == 0 {
		return nil
	}
	return &sorted[0]
}

func roundKm(d float64) float64 {
	return float64(int(d*10+0.5)) / 10
}

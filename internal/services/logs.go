package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
)

// MaxLogResults caps the log listing endpoints.
const MaxLogResults = 100

type LogService struct {
	trackers repository.TrackerStore
	logs     repository.LogStore
}

func NewLogService(trackers repository.TrackerStore, logs repository.LogStore) *LogService {
	return &LogService{trackers: trackers, logs: logs}
}

type PublicLogInput struct {
	TrackerID string      `json:"trackerId"`
	Lat       interface{} `json:"lat"`
	Lng       interface{} `json:"lng"`
	Device    string      `json:"device"`
}

// RecordPublic stores a finder's GPS fix. Missing, non-numeric or (0,0)
// coordinates are rejected before anything is written.
func (s *LogService) RecordPublic(ctx context.Context, in PublicLogInput, userAgent string) (*models.Log, error) {
	if strings.TrimSpace(in.TrackerID) == "" {
		return nil, invalid("trackerId is required")
	}
	lat, latOK := ParseCoordinate(in.Lat)
	lng, lngOK := ParseCoordinate(in.Lng)
	if !latOK || !lngOK {
		return nil, invalid("lat and lng must be numbers")
	}
	if lat == 0 && lng == 0 {
		return nil, invalid("missing GPS coordinates")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, invalid("coordinates out of range")
	}

	t, err := ResolveTracker(ctx, s.trackers, in.TrackerID)
	if err != nil {
		return nil, err
	}

	ua := strings.TrimSpace(in.Device)
	if ua == "" {
		ua = userAgent
	}
	entry := &models.Log{
		TrackerID: t.ID,
		OwnerID:   t.Owner,
		Type:      models.LogTypeScan,
		Location:  models.NewGeoPoint(lng, lat),
		UserAgent: ua,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListFor returns GPS logs visible to user: everything for admins, their
// own trackers otherwise. Entries without a fix are left out.
func (s *LogService) ListFor(ctx context.Context, user *models.User) ([]models.Log, error) {
	q := repository.LogQuery{OnlyWithFix: true, Limit: MaxLogResults}
	if !user.IsAdmin() {
		q.OwnerID = &user.ID
	}
	return s.logs.List(ctx, q)
}

// ListOwned returns every log of the owner's trackers, scans without a fix
// included.
func (s *LogService) ListOwned(ctx context.Context, user *models.User) ([]models.Log, error) {
	return s.logs.List(ctx, repository.LogQuery{OwnerID: &user.ID})
}

// ListAll is the admin view over every tracker.
func (s *LogService) ListAll(ctx context.Context) ([]models.Log, error) {
	return s.logs.List(ctx, repository.LogQuery{})
}

// ParseCoordinate accepts JSON numbers and numeric strings.
func ParseCoordinate(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
